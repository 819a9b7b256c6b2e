// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/fieldhub/internal/app/system/blobstore"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Blob receives uploaded images. Always set after ConnectDB.
	Blob blobstore.Uploader
}
