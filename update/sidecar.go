package update

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// sidecarRecord is the decoded state of one Key's entry in a sidecar
// properties file.
type sidecarRecord struct {
	lastUpdated time.Time
	hasUpdated  bool
	notFound    bool
	errMessage  string
	hasError    bool
}

// sidecarFile is an in-memory view of a ".resolver-status.properties"-style
// file: a flat string-to-string map, one entry per line, loaded once and
// written back atomically. Entries are namespaced by a Key's repository id,
// URL and kind (not its ItemID), so one sidecar file can track several
// repository/URL combinations.
type sidecarFile struct {
	path string
	data map[string]string
}

func loadSidecar(path string) (*sidecarFile, error) {
	sf := &sidecarFile{path: path, data: make(map[string]string)}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return sf, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.IndexByte(line, '=')
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s: malformed line %q", ErrInvalidSidecar, path, line)
		}
		sf.data[line[:idx]] = line[idx+1:]
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return sf, nil
}

func (sf *sidecarFile) record(key Key) sidecarRecord {
	prefix := sidecarKeyPrefix(key)
	var rec sidecarRecord
	if v, ok := sf.data[prefix+".lastUpdated"]; ok {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			rec.lastUpdated = time.UnixMilli(ms)
			rec.hasUpdated = true
		}
	}
	if v, ok := sf.data[prefix+".notFound"]; ok && v == "true" {
		rec.notFound = true
	}
	if v, ok := sf.data[prefix+".error"]; ok {
		rec.errMessage = v
		rec.hasError = true
	}
	return rec
}

func (sf *sidecarFile) setSuccess(key Key, when time.Time) {
	prefix := sidecarKeyPrefix(key)
	sf.data[prefix+".lastUpdated"] = strconv.FormatInt(when.UnixMilli(), 10)
	delete(sf.data, prefix+".error")
	delete(sf.data, prefix+".notFound")
}

func (sf *sidecarFile) setNotFound(key Key, when time.Time) {
	prefix := sidecarKeyPrefix(key)
	sf.data[prefix+".lastUpdated"] = strconv.FormatInt(when.UnixMilli(), 10)
	sf.data[prefix+".notFound"] = "true"
	delete(sf.data, prefix+".error")
}

func (sf *sidecarFile) setError(key Key, when time.Time, message string) {
	prefix := sidecarKeyPrefix(key)
	sf.data[prefix+".lastUpdated"] = strconv.FormatInt(when.UnixMilli(), 10)
	sf.data[prefix+".error"] = message
	delete(sf.data, prefix+".notFound")
}

func (sf *sidecarFile) save() error {
	keys := make([]string, 0, len(sf.data))
	for k := range sf.data {
		keys = append(keys, k)
	}
	var b strings.Builder
	b.WriteString("# generated, do not edit\n")
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(sf.data[k])
		b.WriteByte('\n')
	}
	return atomicWriteFile(sf.path, []byte(b.String()))
}

func sidecarKeyPrefix(key Key) string {
	return fmt.Sprintf("%s.%s.%s", key.RepositoryID, sanitizeURL(key.URL), key.Kind)
}

func sanitizeURL(url string) string {
	var b strings.Builder
	for _, r := range url {
		if r == '=' || r == '\n' || r == '\r' {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func defaultSidecarPath(localFile string) string {
	return localFile + ".resolver-status.properties"
}
