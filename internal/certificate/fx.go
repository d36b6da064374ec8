package certificate

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/linkrail/linkrail/internal/certificate/acme"
	certdomain "github.com/linkrail/linkrail/internal/certificate/domain"
	"github.com/linkrail/linkrail/internal/certificate/originca"
	"github.com/linkrail/linkrail/internal/certificate/stub"
	"github.com/linkrail/linkrail/internal/config"
)

var Module = fx.Options(
	fx.Provide(NewIssuer),
	fx.Provide(NewValidator),
)

type Params struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
}

// NewIssuer selects the provider strategy from configuration. Unknown
// provider names fall back to the stub so issuance fails loudly instead of
// hanging.
func NewIssuer(p Params) certdomain.Issuer {
	certs := p.Config.Certs
	switch certs.Provider {
	case config.ProviderACME:
		return acme.New(acme.Config{
			DirectoryURL: certs.ACMEDirectoryURL,
			Email:        certs.ACMEEmail,
			HTTP01Addr:   certs.ACMEHTTP01Addr,
		}, p.Log)
	case config.ProviderOriginCA:
		return originca.New(originca.Config{
			Endpoint:   certs.OriginCAEndpoint,
			ServiceKey: certs.OriginCAKey,
		}, p.Log)
	default:
		p.Log.Warn("unknown certificate provider, using stub",
			zap.String("provider", certs.Provider))
		return stub.New()
	}
}
