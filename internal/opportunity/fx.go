package opportunity

import (
	"github.com/makoban/koubo-navi/internal/opportunity/repository"
	"github.com/makoban/koubo-navi/internal/opportunity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("opportunity.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
