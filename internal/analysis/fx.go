package analysis

import (
	"github.com/makoban/koubo-navi/internal/analysis/service"
	"go.uber.org/fx"
)

var Module = fx.Module("analysis.service",
	fx.Provide(service.New),
)
