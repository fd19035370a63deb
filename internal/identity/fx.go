package identity

import (
	"github.com/makoban/koubo-navi/internal/identity/supabase"
	"go.uber.org/fx"
)

var Module = fx.Module("identity",
	fx.Provide(supabase.New),
)
