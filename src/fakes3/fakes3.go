package fakes3

import (
	"encoding/xml"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/snapwall/snapwall/src/logging"
	"github.com/snapwall/snapwall/src/storage"
	"github.com/snapwall/snapwall/src/website"
	"github.com/spf13/cobra"
)

func init() {
	var addr string
	s3Command := &cobra.Command{
		Use:   "fakes3 [storage folder]",
		Short: "Run a local s3 server that stores in the filesystem",
		Long:  "Run a local s3 server that stores in the filesystem. Point S3_ENDPOINT at it to develop against the s3 storage backend.",
		Run: func(cmd *cobra.Command, args []string) {
			targetFolder := "./tmp"
			if len(args) > 0 {
				targetFolder = args[0]
			}

			handler, err := NewHandler(targetFolder)
			if err != nil {
				logging.Fatal().Err(err).Msg("failed to set up fake s3 storage")
			}

			logging.Info().Str("addr", addr).Str("folder", targetFolder).Msg("Serving fake s3")
			server := &http.Server{
				Addr:              addr,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}
			if err := server.ListenAndServe(); err != nil {
				logging.Fatal().Err(err).Msg("fake s3 server stopped")
			}
		},
	}
	s3Command.Flags().StringVar(&addr, "addr", ":9000", "Address to listen on")

	website.WebsiteCommand.AddCommand(s3Command)
}

// Handler speaks just enough of the path-style S3 API for the storage package:
// bucket creation and object put, get, head, and delete.
type Handler struct {
	root  string
	local *storage.Local
}

func NewHandler(root string) (*Handler, error) {
	local, err := storage.NewLocal(root)
	if err != nil {
		return nil, err
	}
	return &Handler{root: root, local: local}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	bucket, key := bucketKey(r)
	logging.Debug().
		Str("method", r.Method).
		Str("bucket", bucket).
		Str("key", key).
		Msg("fake s3 request")

	if bucket == "" {
		writeError(w, http.StatusBadRequest, "InvalidBucketName", "no bucket given")
		return
	}

	if key == "" {
		switch r.Method {
		case http.MethodPut:
			if err := os.MkdirAll(filepath.Join(h.root, bucket), fs.ModePerm); err != nil {
				writeError(w, http.StatusInternalServerError, "InternalError", err.Error())
				return
			}
			w.Header().Set("Location", "/"+bucket)
		case http.MethodHead:
			if !h.bucketExists(bucket) {
				w.WriteHeader(http.StatusNotFound)
			}
		default:
			writeError(w, http.StatusNotImplemented, "NotImplemented", "unsupported bucket operation")
		}
		return
	}

	if !h.bucketExists(bucket) {
		writeError(w, http.StatusNotFound, "NoSuchBucket", "The specified bucket does not exist")
		return
	}
	name := bucket + "/" + key

	switch r.Method {
	case http.MethodPut:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "IncompleteBody", err.Error())
			return
		}
		if err := h.local.Put(r.Context(), name, body, r.Header.Get("Content-Type")); err != nil {
			writeError(w, http.StatusInternalServerError, "InternalError", err.Error())
			return
		}
	case http.MethodGet, http.MethodHead:
		obj, err := h.local.Fetch(r.Context(), name)
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NoSuchKey", "The specified key does not exist.")
			return
		} else if err != nil {
			writeError(w, http.StatusInternalServerError, "InternalError", err.Error())
			return
		}
		defer obj.Content.Close()
		http.ServeContent(w, r, key, obj.ModTime, obj.Content)
	case http.MethodDelete:
		if err := h.local.Delete(r.Context(), name); err != nil {
			writeError(w, http.StatusInternalServerError, "InternalError", err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusNotImplemented, "NotImplemented", "unsupported object operation")
	}
}

func (h *Handler) bucketExists(bucket string) bool {
	info, err := os.Stat(filepath.Join(h.root, bucket))
	return err == nil && info.IsDir()
}

func bucketKey(r *http.Request) (string, string) {
	p := strings.TrimPrefix(r.URL.Path, "/")
	slashIdx := strings.IndexByte(p, '/')
	if slashIdx == -1 {
		return p, ""
	}
	return p[:slashIdx], p[slashIdx+1:]
}

type s3Error struct {
	XMLName xml.Name `xml:"Error"`
	Code    string   `xml:"Code"`
	Message string   `xml:"Message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	body, _ := xml.Marshal(s3Error{Code: code, Message: message})
	w.Write([]byte(xml.Header))
	w.Write(body)
}
