package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"twap-adapter/config"
	"twap-adapter/pkg/adapter"
	"twap-adapter/pkg/client"
	"twap-adapter/pkg/indexer"
	"twap-adapter/pkg/price"
	"twap-adapter/pkg/registry"
	"twap-adapter/pkg/wallet"
)

// app is everything a command needs, built from the configuration
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	session *adapter.Session
}

// setup loads configuration, connects the wallet and loads the dapp tokens.
// It exits the process on failure, like every command here.
func setup(cmd *cobra.Command) *app {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	// Load tokens with spinner
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = fmt.Sprintf(" Loading %s tokens...", a.session.Dapp().Name)
		s.Start()
	}

	_, err = a.session.LoadTokens(cmd.Context(), tokenSource(cfg))
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	return a
}

// lookupDapp returns the configured dapp with config overrides applied
func lookupDapp(cfg *config.Config) (adapter.Dapp, error) {
	dapp, err := adapter.Lookup(cfg.Dapp)
	if err != nil {
		return adapter.Dapp{}, err
	}
	if cfg.LogoURLTemplate != "" {
		dapp.Rules.LogoURLTemplate = cfg.LogoURLTemplate
	}
	return dapp, nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	dapp, err := lookupDapp(cfg)
	if err != nil {
		return nil, err
	}

	provider, err := newProvider(ctx, cfg, dapp)
	if err != nil {
		return nil, err
	}
	if err := provider.CheckChain(dapp.ChainID); err != nil {
		logger.Warn("wallet chain mismatch", zap.Error(err))
	}

	oracle, err := newOracle(cfg, dapp, provider, logger)
	if err != nil {
		return nil, err
	}

	session := adapter.NewSession(dapp, provider, oracle, logger)
	session.SetAmountPrecision(cfg.AmountPrecision)

	return &app{
		cfg:     cfg,
		logger:  logger,
		session: session,
	}, nil
}

func newProvider(ctx context.Context, cfg *config.Config, dapp adapter.Dapp) (wallet.Provider, error) {
	if cfg.RPCURL != "" {
		return wallet.Dial(ctx, cfg.RPCURL, cfg.Account)
	}

	chainID := cfg.ChainID
	if chainID == 0 {
		chainID = dapp.ChainID
	}
	return wallet.New(cfg.Account, chainID)
}

func newOracle(cfg *config.Config, dapp adapter.Dapp, provider wallet.Provider, logger *zap.Logger) (price.Oracle, error) {
	switch cfg.PriceSource {
	case config.PriceSourceStatic:
		oracle, err := price.LoadStaticOracle(cfg.PricesFile)
		if err != nil {
			return nil, err
		}
		return oracle, nil
	case config.PriceSourceOneClick:
		if dapp.OneClickChain == "" {
			return nil, fmt.Errorf("1Click has no prices for %s", dapp.Name)
		}
		apiClient := client.NewOneClickClient(cfg.OneClickJWT, cfg.OneClickBaseURL)
		return price.NewOneClickOracle(apiClient, dapp.OneClickChain), nil
	case config.PriceSourceChainlink:
		if provider.Client == nil {
			return nil, fmt.Errorf("price source 'chainlink' requires an RPC connection")
		}
		oracle, err := price.NewChainlinkOracle(provider.Client, cfg.PriceFeeds, logger)
		if err != nil {
			return nil, err
		}
		return oracle, nil
	default:
		return price.None{}, nil
	}
}

func tokenSource(cfg *config.Config) registry.Source {
	if cfg.TokensURL != "" {
		return registry.URLSource{URL: cfg.TokensURL}
	}
	return registry.FileSource{Path: cfg.TokensFile}
}

// orderSource reads the configured indexer dump, falling back to the local store
func orderSource(cfg *config.Config) (indexer.Source, error) {
	if cfg.OrdersFile != "" {
		return indexer.FileSource{Path: cfg.OrdersFile}, nil
	}
	return indexer.NewStore(cfg.OrdersStore)
}

func (a *app) close() {
	a.session.Provider().Close()
	_ = a.logger.Sync()
}
