package journal

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/chrisdamba/homeservices/internal/cloudwriter"
	"github.com/chrisdamba/homeservices/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
)

const parquetParallelism = 4

// ParquetSink writes dispatch events into one Parquet file per topic and
// hour, either on local disk or in a cloud bucket.
type ParquetSink struct {
	basePath string
	folder   string
	log      logrus.FieldLogger

	cloudWriterFactory cloudwriter.CloudWriterFactory
	cloudBucketName    string

	mu      sync.Mutex
	writers map[string]*writer.ParquetWriter
	files   map[string]source.ParquetFile
}

// NewParquetSink writes under basePath/folder. A non-nil factory sends the
// files to bucket instead.
func NewParquetSink(basePath, folder string, factory cloudwriter.CloudWriterFactory, bucket string, log logrus.FieldLogger) *ParquetSink {
	return &ParquetSink{
		basePath:           basePath,
		folder:             folder,
		log:                log,
		cloudWriterFactory: factory,
		cloudBucketName:    bucket,
		writers:            make(map[string]*writer.ParquetWriter),
		files:              make(map[string]source.ParquetFile),
	}
}

func (p *ParquetSink) WriteMessage(topic string, msg []byte) error {
	var event models.DispatchEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		return err
	}

	key := path.Join(topic, partitionPath(time.Unix(event.Timestamp, 0)))

	p.mu.Lock()
	defer p.mu.Unlock()

	pw, ok := p.writers[key]
	if !ok {
		fw, err := p.openFile(key)
		if err != nil {
			return err
		}
		pw, err = writer.NewParquetWriter(fw, new(models.DispatchEvent), parquetParallelism)
		if err != nil {
			fw.Close()
			return fmt.Errorf("failed to create ParquetWriter: %w", err)
		}
		p.writers[key] = pw
		p.files[key] = fw
	}

	if err := pw.Write(event); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

func (p *ParquetSink) openFile(key string) (source.ParquetFile, error) {
	if p.cloudWriterFactory != nil {
		return OpenCloudParquetFile(p.cloudWriterFactory, p.cloudBucketName, path.Join(p.folder, key, "data.parquet"))
	}
	fullPath := filepath.Join(p.basePath, p.folder, filepath.FromSlash(key))
	if err := os.MkdirAll(fullPath, os.ModePerm); err != nil {
		return nil, err
	}
	fw, err := local.NewLocalFileWriter(filepath.Join(fullPath, "data.parquet"))
	if err != nil {
		return nil, fmt.Errorf("failed to create local file writer: %w", err)
	}
	return fw, nil
}

// Close flushes every open file. Parquet footers are only written here, so
// a sink that is never closed leaves unreadable files behind.
func (p *ParquetSink) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var lastErr error
	for key, pw := range p.writers {
		if err := pw.WriteStop(); err != nil {
			lastErr = err
			p.log.WithError(err).WithField("key", key).Error("Error closing parquet writer")
		}
		if err := p.files[key].Close(); err != nil {
			lastErr = err
			p.log.WithError(err).WithField("key", key).Error("Error closing parquet file")
		}
	}
	p.writers = make(map[string]*writer.ParquetWriter)
	p.files = make(map[string]source.ParquetFile)
	return lastErr
}

// WriteOrders writes a full order snapshot as one Parquet file.
func WriteOrders(fw source.ParquetFile, orders []models.Order) error {
	pw, err := writer.NewParquetWriter(fw, new(models.OrderRecord), parquetParallelism)
	if err != nil {
		return fmt.Errorf("failed to create ParquetWriter: %w", err)
	}
	for _, o := range orders {
		if err := pw.Write(models.NewOrderRecord(o)); err != nil {
			return fmt.Errorf("failed to write order %s: %w", o.ID, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return fw.Close()
}

// CloudParquetFile adapts a CloudWriter to the write side of
// source.ParquetFile. The object is uploaded on Close.
type CloudParquetFile struct {
	cloudWriter cloudwriter.CloudWriter
	offset      int64
}

func OpenCloudParquetFile(factory cloudwriter.CloudWriterFactory, bucket, objectPath string) (*CloudParquetFile, error) {
	cw, err := factory.NewWriter(bucket, objectPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloud file writer: %w", err)
	}
	return &CloudParquetFile{cloudWriter: cw}, nil
}

// Open and Create return the receiver: the object comes into existence
// when it is uploaded.
func (c *CloudParquetFile) Open(string) (source.ParquetFile, error) {
	return c, nil
}

func (c *CloudParquetFile) Create(string) (source.ParquetFile, error) {
	return c, nil
}

func (c *CloudParquetFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		c.offset = offset
	case io.SeekCurrent:
		c.offset += offset
	case io.SeekEnd:
		return 0, fmt.Errorf("seek from end not supported for cloud storage")
	}
	return c.offset, nil
}

func (c *CloudParquetFile) Read([]byte) (int, error) {
	return 0, fmt.Errorf("read not supported for cloud storage")
}

func (c *CloudParquetFile) Write(p []byte) (int, error) {
	n, err := c.cloudWriter.Write(p)
	c.offset += int64(n)
	return n, err
}

func (c *CloudParquetFile) Close() error {
	return c.cloudWriter.Close()
}
