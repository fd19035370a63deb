package ai

import "go.uber.org/fx"

var Module = fx.Module("providers.ai",
	fx.Provide(NewGemini),
)
