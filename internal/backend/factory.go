package backend

import (
	"context"
	"fmt"

	"github.com/GillJordan/Home-expense/internal/amqp"
	"github.com/GillJordan/Home-expense/internal/log"
	"github.com/GillJordan/Home-expense/internal/sheets"
	gsheet "github.com/GillJordan/Home-expense/internal/sheets/google"
	"github.com/GillJordan/Home-expense/internal/sheets/memory"
)

// DefaultFactory implements Factory.
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend builds the configured store. An unreachable AMQP broker is
// logged and skipped: events are best effort.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store sheets.LedgerStore
		err   error
	)
	switch config.Type {
	case SheetsBackend:
		store, err = f.createSheetsStore(ctx, config)
	case MemoryBackend:
		store = memory.New()
		f.logger.InfoContext(ctx, "Initialized memory backend")
	default:
		err = fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	res := &BackendResult{Store: store, Cleanup: func() error { return nil }}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without row events",
				log.FieldError, err)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			res.Notifier = client
			res.Cleanup = client.Close
		}
	}
	return res, nil
}

func (f *DefaultFactory) createSheetsStore(ctx context.Context, config Config) (sheets.LedgerStore, error) {
	cli, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:    config.SpreadsheetID,
		ServiceKey:       config.ServiceKey,
		ValueInputOption: config.ValueInputOption,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize Google Sheets client: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized Google Sheets backend", "spreadsheet_id", config.SpreadsheetID)
	return cli, nil
}
