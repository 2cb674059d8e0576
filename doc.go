// Package otaserve locates an update payload stored uncompressed inside an
// OTA package and serves byte ranges of it over HTTP, standing in for a
// production download server during local testing.
//
// The payload is never extracted: [Locate] resolves the exact byte offset and
// length of the payload entry by reading the package's central directory and
// re-reading the entry's local file header, then the server streams ranges of
// the package file directly.
//
// # Quick Start
//
// Locate the payload inside an OTA package and serve it:
//
//	loc, err := otaserve.Locate("ota.zip")
//	if err != nil {
//	    return err
//	}
//	srv := server.New(loc)
//	http.ListenAndServe("127.0.0.1:8080", srv.Handler())
//
// A device pointed at the server POSTs an update-check request to /update and
// receives a descriptor carrying the payload's size and SHA-256 digest, then
// fetches the payload itself with ranged GETs against /payload.
package otaserve
