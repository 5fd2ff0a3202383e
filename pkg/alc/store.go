package alc

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"

	kcompress "github.com/klauspost/compress/flate"
	log "github.com/sirupsen/logrus"
)

const fileEncoding = "crc-%d.alc"

var crcFilenameRegex = regexp.MustCompile(`^crc-(\d+)\.alc$`)

func init() {
	// alc.zip is a standard deflate-compressed zip container; register
	// klauspost/compress's faster flate implementation as its decompressor,
	// the same pairing the teacher uses for EDS files (pkg/od/parser.go
	// combines archive/zip-adjacent parsing with gopkg.in/ini.v1).
	zip.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return kcompress.NewReader(r)
	})
}

// Store is the AlcStore: a CRC-keyed map of parsed ALC symbol tables,
// persisted to <dir>/crc-<n>.alc on disk.
type Store struct {
	log *log.Entry
	dir string

	mu     sync.RWMutex
	byCRC  map[uint32]map[string]VarInfo
	saveWg sync.WaitGroup
}

// NewStore creates a Store rooted at dir. Call LoadFromDisk once at
// startup to populate it from any previously persisted ALC files.
func NewStore(dir string) *Store {
	return &Store{
		log:   log.WithField("component", "alc"),
		dir:   dir,
		byCRC: make(map[uint32]map[string]VarInfo),
	}
}

// LoadFromDisk enumerates the ALC directory (creating it if missing) and
// parses each crc-<n>.alc file found there. Invalid filenames are reported
// and skipped; they are never fatal to startup.
func (s *Store) LoadFromDisk() error {
	if _, err := os.Stat(s.dir); os.IsNotExist(err) {
		return os.MkdirAll(s.dir, 0o755)
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("alc: reading directory %q: %w", s.dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		crc, ok := filenameToCRC(entry.Name())
		if !ok {
			s.log.Errorf("invalid alc filename %q", entry.Name())
			continue
		}

		text, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			s.log.WithError(err).Warnf("can't load alc file %q", entry.Name())
			continue
		}

		parsed, err := Parse(string(text))
		if err != nil {
			s.log.WithError(err).Warnf("can't parse alc file %q", entry.Name())
			continue
		}

		s.mu.Lock()
		s.byCRC[crc] = parsed
		s.mu.Unlock()
	}

	return nil
}

// Get returns the parsed symbol table for crc, and whether it is present.
func (s *Store) Get(crc uint32) (map[string]VarInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	table, ok := s.byCRC[crc]
	return table, ok
}

// Set parses alcText, installs it in memory immediately, and schedules an
// atomic write of the raw text to crc-<n>.alc on a background goroutine —
// mirroring AlcService.set_alc_text's split between the synchronous
// in-memory update and the offloaded disk write.
func (s *Store) Set(crc uint32, alcText string) error {
	parsed, err := Parse(alcText)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.byCRC[crc] = parsed
	s.mu.Unlock()
	s.log.Infof("added alc with crc=%d", crc)

	s.saveWg.Add(1)
	go func() {
		defer s.saveWg.Done()
		if err := s.saveToDisk(crc, alcText); err != nil {
			s.log.WithError(err).Warnf("can't save alc file for crc=%d", crc)
		}
	}()

	return nil
}

// Wait blocks until all in-flight background saves complete. Intended for
// clean shutdown.
func (s *Store) Wait() {
	s.saveWg.Wait()
}

func (s *Store) saveToDisk(crc uint32, text string) error {
	path := filepath.Join(s.dir, crcToFilename(crc))
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, []byte(text), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func crcToFilename(crc uint32) string {
	return fmt.Sprintf(fileEncoding, crc)
}

func filenameToCRC(name string) (uint32, bool) {
	m := crcFilenameRegex.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

// DecompressZip extracts the single ALC text file contained in an alc.zip
// payload fetched from a controller (spec.md 4.H / 4.I.3).
func DecompressZip(zipBytes []byte) (string, error) {
	r, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return "", fmt.Errorf("alc: opening alc.zip: %w", err)
	}
	if len(r.File) == 0 {
		return "", fmt.Errorf("alc: alc.zip is empty")
	}

	f, err := r.File[0].Open()
	if err != nil {
		return "", fmt.Errorf("alc: opening %q in alc.zip: %w", r.File[0].Name, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("alc: reading %q in alc.zip: %w", r.File[0].Name, err)
	}

	return string(data), nil
}
