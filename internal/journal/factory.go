package journal

import (
	"fmt"
	"os"
	"strings"

	"github.com/chrisdamba/homeservices/internal/cloudwriter"
	"github.com/chrisdamba/homeservices/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	DestinationNone     = "none"
	DestinationConsole  = "console"
	DestinationJSON     = "json"
	DestinationParquet  = "parquet"
	DestinationKafka    = "kafka"
	DestinationRabbitMQ = "rabbitmq"
)

// New builds the sink for cfg.Destination, which may name several
// destinations separated by commas.
func New(cfg models.JournalConfig, log logrus.FieldLogger) (Sink, error) {
	var sinks MultiSink
	for _, dest := range strings.Split(cfg.Destination, ",") {
		dest = strings.TrimSpace(dest)
		if dest == "" || dest == DestinationNone {
			continue
		}
		s, err := newSink(dest, cfg, log)
		if err != nil {
			sinks.Close()
			return nil, err
		}
		sinks = append(sinks, s)
	}

	switch len(sinks) {
	case 0:
		return NopSink{}, nil
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}

func newSink(dest string, cfg models.JournalConfig, log logrus.FieldLogger) (Sink, error) {
	switch dest {
	case DestinationConsole:
		return NewConsoleSink(os.Stdout), nil
	case DestinationJSON:
		return NewJSONSink(cfg.OutputPath, cfg.OutputFolder), nil
	case DestinationParquet:
		factory, err := NewCloudWriterFactory(cfg.CloudStorage)
		if err != nil {
			return nil, err
		}
		return NewParquetSink(cfg.OutputPath, cfg.OutputFolder, factory, cfg.CloudStorage.BucketName, log), nil
	case DestinationKafka:
		return NewKafkaSink(cfg.KafkaBrokerList, log)
	case DestinationRabbitMQ:
		return NewRabbitSink(cfg.RabbitURL, cfg.RabbitExchange)
	default:
		return nil, fmt.Errorf("unsupported journal destination: %s", dest)
	}
}

// NewCloudWriterFactory returns nil for local storage.
func NewCloudWriterFactory(cfg models.CloudStorageConfig) (cloudwriter.CloudWriterFactory, error) {
	switch cfg.Provider {
	case "", "local":
		return nil, nil
	case "s3":
		factory, err := cloudwriter.NewS3WriterFactory(cfg.Region)
		if err != nil {
			return nil, fmt.Errorf("failed to create cloud writer factory: %w", err)
		}
		return factory, nil
	default:
		return nil, fmt.Errorf("unsupported cloud storage provider: %s", cfg.Provider)
	}
}
