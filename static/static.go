/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package static implements the file-serving pipeline (spec §4.8): a
// path-safe lookup under a configured root, MIME-by-extension, ETag and
// conditional-request handling, a threshold between in-memory reads and
// chunked sendfile-style reads, directory listing, and an LRU byte cache.
package static

import (
	"html"
	"io"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	liberr "github.com/nabbar/uvhttpd/errors"
	"github.com/nabbar/uvhttpd/message"
)

// sendfileThreshold is the file size above which Serve reads the file in
// SendFile.ChunkSize pieces instead of loading it whole; below it, the
// whole file is read (and eligible for caching) in one shot.
const sendfileThreshold = 256 * 1024

const defaultChunkSize = 32 * 1024

// SendFile mirrors config.SendFile: the chunked-read knobs used once a
// file crosses sendfileThreshold.
type SendFile struct {
	TimeoutMs int
	MaxRetry  int
	ChunkSize int
}

// Config mirrors config.Static without importing the config package (the
// same pattern ratelimit.Config follows).
type Config struct {
	Root                   string
	IndexFile              string
	EnableDirectoryListing bool
	EnableETag             bool
	MaxCacheSize           int64
	CacheTTL               time.Duration
	MaxCacheEntries        int
	SendFile               SendFile
}

// Static serves files under Config.Root. One instance is shared by every
// connection; all of its state is either immutable after New or protected
// by fileCache's own mutex.
type Static struct {
	cfg   Config
	cache *fileCache
}

// New validates cfg and returns a ready Static.
func New(cfg Config) (*Static, liberr.Error) {
	if strings.TrimSpace(cfg.Root) == "" {
		return nil, ErrorRootRequired.Error(nil)
	}

	info, err := os.Stat(cfg.Root)
	if err != nil || !info.IsDir() {
		return nil, ErrorRootNotDirectory.Error(nil)
	}

	fc, ferr := newFileCache(cfg.MaxCacheEntries, cfg.MaxCacheSize, cfg.CacheTTL)
	if ferr != nil {
		return nil, ErrorCacheInit.Error(ferr)
	}

	return &Static{cfg: cfg, cache: fc}, nil
}

// Stats returns a snapshot of the cache counters (spec §4.8).
func (s *Static) Stats() CacheStats {
	return s.cache.stats()
}

// Serve resolves req.Path under the configured root and writes the
// matching response: 304 on a conditional-request hit, a directory
// listing, or the file's content with ETag/Last-Modified/Content-Type/
// Content-Length headers. No Cache-Control header is set. Handler-shaped so it can be
// registered directly as a router.Handler.
func (s *Static) Serve(req *message.Request, resp *message.Response) {
	full, verr := resolveSafePath(s.cfg.Root, req.Path)
	if verr != nil {
		s.writeError(resp, 403)
		return
	}

	info, err := os.Stat(full)
	if err != nil {
		s.writeError(resp, 404)
		return
	}

	if info.IsDir() {
		s.serveDir(full, req, resp)
		return
	}
	if !info.Mode().IsRegular() {
		s.writeError(resp, 404)
		return
	}

	s.serveFile(full, info, req, resp)
}

// serveDir serves IndexFile from within dir if present, else a generated
// listing if enabled, else 404.
func (s *Static) serveDir(dir string, req *message.Request, resp *message.Response) {
	if s.cfg.IndexFile != "" {
		idx := path.Join(dir, s.cfg.IndexFile)
		if info, err := os.Stat(idx); err == nil && info.Mode().IsRegular() {
			s.serveFile(idx, info, req, resp)
			return
		}
	}

	if !s.cfg.EnableDirectoryListing {
		s.writeError(resp, 404)
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		s.writeError(resp, 404)
		return
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><title>Index</title></head><body><ul>")
	for _, name := range names {
		escaped := html.EscapeString(name)
		b.WriteString(`<li><a href="`)
		b.WriteString(escaped)
		b.WriteString(`">`)
		b.WriteString(escaped)
		b.WriteString("</a></li>")
	}
	b.WriteString("</ul></body></html>")

	resp.Status = 200
	_ = resp.Headers.Set("Content-Type", "text/html")
	resp.Body = []byte(b.String())
}

// serveFile answers the conditional-request headers, then serves from
// cache, from a chunked read, or from a single in-memory read.
func (s *Static) serveFile(full string, info os.FileInfo, req *message.Request, resp *message.Response) {
	etag := ""
	if s.cfg.EnableETag {
		etag = generateETag(info.ModTime(), info.Size())
	}

	if s.cfg.EnableETag {
		if inm, ok := req.Headers.Get("If-None-Match"); ok && etagMatches(inm, etag) {
			resp.Status = 304
			return
		}
	}
	if ims, ok := req.Headers.Get("If-Modified-Since"); ok {
		if t, err := time.Parse(time.RFC1123, ims); err == nil && !info.ModTime().After(t.Add(time.Second)) {
			resp.Status = 304
			return
		}
	}

	if e := s.cache.get(full); e != nil && e.modTime.Equal(info.ModTime()) && e.size == info.Size() {
		s.writeEntry(req, resp, e)
		return
	}

	mime := mimeType(full)
	var data []byte
	var err error

	if info.Size() > sendfileThreshold {
		data, err = s.readChunked(full, info.Size())
	} else {
		data, err = os.ReadFile(full)
	}
	if err != nil {
		s.writeError(resp, 404)
		return
	}

	e := &cacheEntry{
		data:     data,
		mime:     mime,
		etag:     etag,
		modTime:  info.ModTime(),
		size:     info.Size(),
		storedAt: time.Now(),
	}
	s.cache.put(full, e)
	s.writeEntry(req, resp, e)
}

// readChunked reads a file in SendFile.ChunkSize pieces, retrying a failed
// chunk up to SendFile.MaxRetry times. This is the in-process stand-in for
// the zero-copy sendfile(2) path: the response pipeline here always
// assembles a full in-memory body (message.Response has no streaming
// writer). The read applies SendFile.ChunkSize and SendFile.MaxRetry;
// SendFile.TimeoutMs is not applied.
func (s *Static) readChunked(full string, size int64) ([]byte, error) {
	chunkSize := s.cfg.SendFile.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	maxRetry := s.cfg.SendFile.MaxRetry

	f, err := os.Open(full)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, 0, size)
	chunk := make([]byte, chunkSize)

	for {
		var n int
		var readErr error
		for attempt := 0; ; attempt++ {
			n, readErr = f.Read(chunk)
			if readErr == nil || readErr == io.EOF {
				break
			}
			if attempt >= maxRetry {
				return nil, readErr
			}
		}

		buf = append(buf, chunk[:n]...)
		if readErr == io.EOF {
			break
		}
	}

	return buf, nil
}

// writeEntry writes e's bytes as the response body: the whole file on a
// plain request, or a single byte range (spec §6: "Honours ... Range
// (single range; multi-range out of scope)") when the request carries a
// satisfiable Range header that If-Range (if present) does not veto.
func (s *Static) writeEntry(req *message.Request, resp *message.Response, e *cacheEntry) {
	_ = resp.Headers.Set("Content-Type", e.mime)
	_ = resp.Headers.Set("Last-Modified", e.modTime.UTC().Format(time.RFC1123))
	_ = resp.Headers.Set("Accept-Ranges", "bytes")
	if e.etag != "" {
		_ = resp.Headers.Set("ETag", e.etag)
	}

	size := int64(len(e.data))
	rangeHeader, hasRange := req.Headers.Get("Range")
	if hasRange && !s.rangeApplies(req, e) {
		hasRange = false
	}

	if hasRange {
		if r, present, satisfiable := parseRange(rangeHeader, size); present {
			if !satisfiable {
				resp.Status = 416
				_ = resp.Headers.Set("Content-Range", "bytes */"+strconv.FormatInt(size, 10))
				return
			}

			resp.Status = 206
			_ = resp.Headers.Set("Content-Range", contentRangeHeader(r, size))
			_ = resp.Headers.Set("Content-Length", strconv.FormatInt(r.end-r.start+1, 10))
			resp.Body = e.data[r.start : r.end+1]
			return
		}
	}

	resp.Status = 200
	_ = resp.Headers.Set("Content-Length", strconv.Itoa(len(e.data)))
	resp.Body = e.data
}

// rangeApplies implements If-Range (RFC 7233 §3.2): a Range header is only
// honoured when either no validator is given, or the given ETag/date still
// matches the served entry; a stale validator means the client's cached
// partial content is out of date, so the full, current resource is sent.
func (s *Static) rangeApplies(req *message.Request, e *cacheEntry) bool {
	ifRange, ok := req.Headers.Get("If-Range")
	if !ok {
		return true
	}
	if e.etag != "" && ifRange == e.etag {
		return true
	}
	if t, err := time.Parse(time.RFC1123, ifRange); err == nil {
		return !e.modTime.After(t.Add(time.Second))
	}
	return false
}

func (s *Static) writeError(resp *message.Response, status int) {
	resp.Status = status
	_ = resp.Headers.Set("Content-Type", "text/plain")
	resp.Body = []byte(message.ReasonPhrase(status))
}
