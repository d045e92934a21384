package storage

import "realclear-polls/models"

// DatasetWriter is the interface any dataset output must satisfy.
type DatasetWriter interface {
	Write(ds *models.Dataset) error
	Close() error
}
