package screening

import (
	"github.com/makoban/koubo-navi/internal/screening/repository"
	"github.com/makoban/koubo-navi/internal/screening/service"
	"go.uber.org/fx"
)

var Module = fx.Module("screening.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
