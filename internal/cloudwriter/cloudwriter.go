// Package cloudwriter buffers files destined for object storage.
package cloudwriter

// CloudWriter collects the bytes of one object. Nothing is stored until Close.
type CloudWriter interface {
	Write(data []byte) (int, error)
	Close() error
}

type CloudWriterFactory interface {
	NewWriter(bucket, objectPath string) (CloudWriter, error)
}
