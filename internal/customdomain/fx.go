package customdomain

import (
	"github.com/linkrail/linkrail/internal/customdomain/repository"
	"github.com/linkrail/linkrail/internal/customdomain/service"
	"go.uber.org/fx"
)

var Module = fx.Module("customdomain.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
