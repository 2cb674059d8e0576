// Package server exposes a located OTA payload over HTTP: ranged GETs against
// /payload stream bytes of the payload window, and POSTs to /update answer an
// Omaha-style update-check handshake describing the window's size and digest.
package server

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/singleflight"

	"github.com/otakit/otaserve"
	"github.com/otakit/otaserve/internal/fileio"
)

// Server serves byte ranges of a located payload and answers update checks.
//
// A Server built with a nil location is idle: both endpoints answer 500 until
// the process is restarted with a payload configured. With a location set the
// Server is immutable; concurrent requests share it without locking, and each
// request opens its own handle on the package file.
type Server struct {
	loc  *otaserve.PayloadLocation
	meta otaserve.Properties
	opts options

	digestGroup singleflight.Group
	digestMu    sync.Mutex
	digestVal   digest.Digest
}

// New creates a Server for the given payload location. loc may be nil, which
// yields an idle server whose endpoints fail until a payload is configured.
func New(loc *otaserve.PayloadLocation, opts ...Option) *Server {
	s := &Server{
		loc:  loc,
		opts: defaultOptions(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&s.opts)
	}
	if loc != nil {
		s.meta = otaserve.ParseProperties(loc.Properties)
	}
	return s
}

// Handler returns the HTTP handler for the server's two endpoints.
// Any other path answers 404.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/payload", s.handlePayload).Methods(http.MethodGet)
	r.HandleFunc("/update", s.handleUpdateCheck).Methods(http.MethodPost)
	return r
}

func (s *Server) handlePayload(w http.ResponseWriter, r *http.Request) {
	if s.loc == nil {
		s.opts.logger.Error("payload request while no payload is configured")
		http.Error(w, otaserve.ErrNotReady.Error(), http.StatusInternalServerError)
		return
	}

	// Ranges are relative to a virtual file spanning exactly the payload
	// window, not the package file around it.
	start, end, partial := parseByteRange(r.Header.Get("Range"), s.loc.Size)
	length := end - start

	f, err := os.Open(s.loc.ContainerPath)
	if err != nil {
		s.opts.logger.Error("open package", "path", s.loc.ContainerPath, "error", err)
		http.Error(w, "cannot open package", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end-1, length))
	w.Header().Set("Last-Modified", s.loc.ModTime.UTC().Format(http.TimeFormat))
	if partial {
		w.WriteHeader(http.StatusPartialContent)
	}

	section := io.NewSectionReader(f, s.loc.Offset+start, length)
	copied, err := fileio.CopyBounded(r.Context(), w, section, length)
	if err != nil || copied != length {
		// Headers are already out; all that is left is to note the failure.
		s.opts.logger.Error("payload stream aborted",
			"start", start, "end", end, "copied", copied, "error", err)
		return
	}
	s.opts.logger.Info("served payload range",
		"start", start, "end", end, "length", length, "partial", partial)
}

func (s *Server) handleUpdateCheck(w http.ResponseWriter, r *http.Request) {
	if s.loc == nil {
		s.opts.logger.Error("update check while no payload is configured")
		http.Error(w, otaserve.ErrNotReady.Error(), http.StatusInternalServerError)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestSize))
	if err != nil {
		http.Error(w, "cannot read request body", http.StatusBadRequest)
		return
	}
	appID, err := parseUpdateRequest(body)
	if err != nil {
		s.opts.logger.Warn("bad update check request", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	dgst, err := s.payloadDigest()
	if err != nil {
		s.opts.logger.Error("payload digest", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := buildUpdateResponse(updateDescriptor{
		AppID:        appID,
		Codebase:     "http://" + r.Host + "/",
		PackageName:  "payload",
		SHA256:       dgst.Encoded(),
		Size:         s.loc.Size,
		MetadataSize: s.meta.MetadataSize,
	})
	out, err := encodeUpdateResponse(resp)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.opts.logger.Info("answered update check",
		"appid", appID, "size", s.loc.Size, "sha256", dgst.Encoded())
	w.Header().Set("Content-Type", "text/xml")
	_, _ = w.Write(out)
}

const maxRequestSize = 1 << 20
