// Package timeouts defines the bounded waits applied to every call that
// crosses a process boundary. Each external call is attempted once and fails
// fast when its budget runs out.
package timeouts

import "time"

// CatalogFetch caps the download of a remote worklist catalog.
const CatalogFetch = 15 * time.Second

// AssetUpload caps one asset upload during finalize.
const AssetUpload = 20 * time.Second

// Persist caps the single document upsert during finalize.
const Persist = 10 * time.Second

// Geocode caps one free-text location lookup. The public Nominatim service
// asks clients to tolerate 10s responses.
const Geocode = 10 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second
