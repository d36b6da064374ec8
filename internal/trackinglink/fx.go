package trackinglink

import (
	"github.com/linkrail/linkrail/internal/trackinglink/repository"
	"github.com/linkrail/linkrail/internal/trackinglink/service"
	"go.uber.org/fx"
)

var Module = fx.Module("trackinglink.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
