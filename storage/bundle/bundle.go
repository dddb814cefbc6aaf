// Package bundle exports and imports record sets as TAR archives, for
// backups and for moving state between backends.
//
// Records are mutable and carry no content hash, so a bundle is a
// snapshot: import replays it into the destination with upsert
// semantics. Bundle bytes are deterministic for a given record set.
package bundle

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"cairn.systems/objectstate/object"
	"cairn.systems/objectstate/storage"
)

// FormatVersion is the current bundle index schema version.
const FormatVersion = 1

var epoch0 = time.Unix(0, 0).UTC()

// ExportOptions controls bundle export behavior.
type ExportOptions struct {
	// Labels is optional, non-authoritative metadata naming addresses
	// (streams, claim roots) for human readers of the index.
	Labels map[string]object.Address
	// IncludeIndex controls whether index.json is included.
	IncludeIndex bool
}

// Export writes a deterministic TAR bundle containing the records at
// the given addresses.
//
// Entry order is lexicographic by address and TAR headers are
// normalized, so the same record set always yields the same bytes.
func Export(w io.Writer, kv storage.KV, addrs []object.Address, opts ExportOptions) error {
	if kv == nil {
		return fmt.Errorf("bundle: nil KV")
	}

	uniq := make(map[string]object.Address, len(addrs))
	for _, addr := range addrs {
		if addr.IsZero() {
			return storage.ErrInvalidAddress
		}
		uniq[addr.String()] = addr
	}

	keys := make([]string, 0, len(uniq))
	for s := range uniq {
		keys = append(keys, s)
	}
	sort.Strings(keys)

	tw := tar.NewWriter(w)

	records := make([]indexRecord, 0, len(keys))
	for _, s := range keys {
		addr := uniq[s]
		rec, err := kv.Read(addr)
		if err != nil {
			_ = tw.Close()
			return err
		}
		if err := writeFile(tw, "records/"+s, rec); err != nil {
			_ = tw.Close()
			return err
		}
		records = append(records, indexRecord{Address: s, Size: len(rec)})
	}

	if opts.IncludeIndex {
		idx := indexJSON{
			Version: FormatVersion,
			Records: records,
		}

		if len(opts.Labels) > 0 {
			names := make([]string, 0, len(opts.Labels))
			for k := range opts.Labels {
				names = append(names, k)
			}
			sort.Strings(names)

			labels := make([]indexLabel, 0, len(names))
			for _, k := range names {
				if k == "" {
					_ = tw.Close()
					return fmt.Errorf("bundle: empty label name")
				}
				v := opts.Labels[k]
				if v.IsZero() {
					_ = tw.Close()
					return storage.ErrInvalidAddress
				}
				labels = append(labels, indexLabel{Name: k, Address: v.String()})
			}
			idx.Labels = labels
		}

		b, err := marshalIndexJSON(idx)
		if err != nil {
			_ = tw.Close()
			return err
		}
		if err := writeFile(tw, "index.json", b); err != nil {
			_ = tw.Close()
			return err
		}
	}

	return tw.Close()
}

// ImportOptions controls bundle import behavior.
type ImportOptions struct {
	// IgnoreUnknown controls whether unknown TAR entries are ignored.
	//
	// Default (false) is fail-closed: unknown entries cause Import to
	// return an error.
	IgnoreUnknown bool
}

// Import reads a bundle from r and writes every record into kv,
// replacing records already present at the same addresses.
func Import(r io.Reader, kv storage.KV) error {
	return ImportWithOptions(r, kv, ImportOptions{})
}

// ImportWithOptions reads a bundle from r and writes every record into
// kv. Each entry path must carry a well-formed non-zero address.
func ImportWithOptions(r io.Reader, kv storage.KV, opts ImportOptions) error {
	if kv == nil {
		return fmt.Errorf("bundle: nil KV")
	}

	tr := tar.NewReader(r)
	seen := map[string]struct{}{}

	for {
		h, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		name := cleanTarPath(h.Name)
		if name == "" {
			return fmt.Errorf("bundle: invalid entry path: %q", h.Name)
		}

		if h.Typeflag != tar.TypeReg {
			if opts.IgnoreUnknown {
				continue
			}
			return fmt.Errorf("bundle: unexpected tar entry type: %v (%s)", h.Typeflag, name)
		}

		// Non-authoritative metadata.
		if name == "index.json" || strings.HasPrefix(name, "manifests/") {
			_, _ = io.Copy(io.Discard, tr)
			continue
		}

		if !strings.HasPrefix(name, "records/") {
			if opts.IgnoreUnknown {
				_, _ = io.Copy(io.Discard, tr)
				continue
			}
			return fmt.Errorf("bundle: unknown entry: %s", name)
		}

		addrStr := strings.TrimPrefix(name, "records/")
		addr, derr := object.Parse(addrStr)
		if derr != nil || addr.IsZero() {
			return storage.ErrInvalidAddress
		}

		if _, ok := seen[addrStr]; ok {
			return fmt.Errorf("bundle: duplicate record entry: %s", addrStr)
		}
		seen[addrStr] = struct{}{}

		payload, rerr := io.ReadAll(tr)
		if rerr != nil {
			return rerr
		}
		if werr := kv.Write(addr, payload); werr != nil {
			return werr
		}
	}
}

type indexJSON struct {
	Version int           `json:"version"`
	Records []indexRecord `json:"records"`
	Labels  []indexLabel  `json:"labels,omitempty"`
}

type indexRecord struct {
	Address string `json:"address"`
	Size    int    `json:"size"`
}

type indexLabel struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

func marshalIndexJSON(idx indexJSON) ([]byte, error) {
	// indexJSON is composed only of structs + slices; encoding/json is
	// deterministic for it.
	b, err := json.Marshal(idx)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func writeFile(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		Uid:      0,
		Gid:      0,
		Uname:    "",
		Gname:    "",
		ModTime:  epoch0,
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := io.Copy(tw, bytes.NewReader(content))
	return err
}

func cleanTarPath(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return ""
	}

	parts := strings.Split(name, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" || part == "." {
			return ""
		}
		if part == ".." {
			return ""
		}
		out = append(out, part)
	}
	return strings.Join(out, "/")
}
