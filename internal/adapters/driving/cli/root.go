// Package cli provides the filingqa command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hedgeintel/filingqa/internal/core/domain"
	"github.com/hedgeintel/filingqa/internal/core/ports/driven"
	"github.com/hedgeintel/filingqa/internal/core/ports/driving"
	"github.com/hedgeintel/filingqa/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// ProviderCheck is the outcome of pinging one AI provider.
type ProviderCheck struct {
	Name string
	Err  error
}

// Services holds the driving ports the commands use.
// Fields are optional; a command reports a missing service.
type Services struct {
	Fetch     driving.FetchService
	Ingest    driving.IngestService
	Retriever driving.Retriever
	Answerer  driving.Answerer
	Documents driving.DocumentService
	Monitor   driving.Monitor

	// Check pings the configured embedding and LLM providers.
	Check func(ctx context.Context) []ProviderCheck

	// Config is the resolved configuration.
	Config domain.Config

	// Close releases stores. May be nil.
	Close func() error
}

// ServiceFactory builds the services on first use.
type ServiceFactory func(ctx context.Context) (*Services, error)

var (
	serviceFactory ServiceFactory
	services       *Services
	configStore    driven.ConfigStore
	verbose        bool
)

var rootCmd = &cobra.Command{
	Use:   "filingqa",
	Short: "Question answering over SEC IPO filings",
	Long: `filingqa fetches IPO filings from SEC EDGAR, indexes them locally and
answers questions with citations back to the filing text.

Typical flow:
  filingqa ingest ABCD --all-types
  filingqa ask "What is the lock-up period?" --ticker ABCD`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "trace pipeline steps to stderr")
}

// SetServiceFactory sets how services are built. Commands that need no
// services (version, config get/set) run even when building would fail.
func SetServiceFactory(f ServiceFactory) {
	serviceFactory = f
	services = nil
}

// SetConfigStore sets the key/value store behind the config command.
func SetConfigStore(store driven.ConfigStore) {
	configStore = store
}

// Execute runs the root command and releases services afterwards.
func Execute(ctx context.Context) error {
	defer closeServices()
	return rootCmd.ExecuteContext(ctx)
}

// requireServices builds the services once.
func requireServices(cmd *cobra.Command) (*Services, error) {
	if services != nil {
		return services, nil
	}
	if serviceFactory == nil {
		return nil, errors.New("services not configured")
	}
	s, err := serviceFactory(commandContext(cmd))
	if err != nil {
		return nil, err
	}
	services = s
	return services, nil
}

func closeServices() {
	if services == nil || services.Close == nil {
		return
	}
	if err := services.Close(); err != nil {
		logger.Warn("closing stores: %v", err)
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// parseRef reads "TICKER" or "TICKER/type". typeFlag applies to the bare
// form and defaults to the registration statement.
func parseRef(arg, typeFlag string) (domain.DocumentRef, error) {
	ticker, typ, found := strings.Cut(arg, "/")
	if !found {
		typ = typeFlag
	}
	docType := domain.DocTypeRegistration
	if typ != "" {
		t, err := domain.ParseDocumentType(typ)
		if err != nil {
			return domain.DocumentRef{}, err
		}
		docType = t
	}
	return domain.NewDocumentRef(ticker, docType)
}

// parseFilter builds a retrieval filter from --ticker and --type.
func parseFilter(ticker, typ string) (domain.Filter, error) {
	filter := domain.Filter{Ticker: ticker}
	if typ != "" {
		t, err := domain.ParseDocumentType(typ)
		if err != nil {
			return domain.Filter{}, err
		}
		filter.Type = t
	}
	return filter.Normalised(), nil
}

func missing(name string) error {
	return fmt.Errorf("%s service not configured", name)
}
