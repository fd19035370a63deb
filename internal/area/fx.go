package area

import (
	"github.com/makoban/koubo-navi/internal/area/repository"
	"github.com/makoban/koubo-navi/internal/area/service"
	"go.uber.org/fx"
)

var Module = fx.Module("area.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
