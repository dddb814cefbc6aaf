package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cairn.systems/objectstate/object"
)

// KeyStore stores ed25519 identity seeds on the local filesystem, one
// hex-encoded seed file per named identity.
//
// Layout: Directory/<name>.seed, directory mode 0700, files 0600.
type KeyStore struct {
	Directory string
}

// Entry describes one stored identity.
type Entry struct {
	Name    string
	Address object.Address
}

// DefaultDirectory returns the per-user key directory.
func DefaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".cairn", "keys"), nil
}

// Open returns a KeyStore rooted at directory, or at DefaultDirectory
// when directory is empty.
func Open(directory string) (*KeyStore, error) {
	if directory == "" {
		var err error
		directory, err = DefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	return &KeyStore{Directory: directory}, nil
}

// CheckName validates an identity name: non-empty, letters, digits,
// '-' and '_' only. Names become file names, so nothing else is let
// through.
func CheckName(name string) error {
	if name == "" {
		return errors.New("identity name cannot be empty")
	}
	for _, char := range name {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in identity name", char)
	}
	return nil
}

// ParseSeedHex decodes a hex ed25519 seed, with or without a 0x prefix.
func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimSpace(seedHex)
	seedHex = strings.TrimPrefix(seedHex, "0x")
	data, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(data) != ed25519.SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", ed25519.SeedSize, len(data))
	}
	return data, nil
}

func (ks *KeyStore) seedPath(name string) string {
	return filepath.Join(ks.Directory, name+".seed")
}

func (ks *KeyStore) saveSeed(path string, seed []byte, force bool) error {
	if len(seed) != ed25519.SeedSize {
		return fmt.Errorf("expected seed length of %d bytes", ed25519.SeedSize)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if force {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := file.WriteString(hex.EncodeToString(seed) + "\n"); err != nil {
		return err
	}
	return file.Close()
}

func (ks *KeyStore) loadSeed(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeedHex(strings.TrimSpace(string(data)))
}

func addressForSeed(seed []byte) (object.Address, error) {
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return AddressForPublicKey(Ed25519, pub)
}

// InitializeIdentity mints a fresh ed25519 identity under the given
// name and returns its address. Unless force is set, an existing
// identity of the same name is an error.
func (ks *KeyStore) InitializeIdentity(name string, force bool) (object.Address, error) {
	if err := CheckName(name); err != nil {
		return object.Zero, err
	}
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return object.Zero, err
	}
	return ks.storeSeed(name, priv.Seed(), force)
}

// ImportIdentity stores a caller-provided ed25519 seed under the given
// name and returns its address.
func (ks *KeyStore) ImportIdentity(name string, seed []byte, force bool) (object.Address, error) {
	if err := CheckName(name); err != nil {
		return object.Zero, err
	}
	return ks.storeSeed(name, seed, force)
}

func (ks *KeyStore) storeSeed(name string, seed []byte, force bool) (object.Address, error) {
	addr, err := addressForSeed(seed)
	if err != nil {
		return object.Zero, err
	}
	if err := ks.saveSeed(ks.seedPath(name), seed, force); err != nil {
		return object.Zero, err
	}
	return addr, nil
}

// LoadIdentity returns the named identity's private key.
func (ks *KeyStore) LoadIdentity(name string) (ed25519.PrivateKey, error) {
	if err := CheckName(name); err != nil {
		return nil, err
	}
	seed, err := ks.loadSeed(ks.seedPath(name))
	if err != nil {
		return nil, err
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// Address returns the named identity's address without exposing the
// key.
func (ks *KeyStore) Address(name string) (object.Address, error) {
	if err := CheckName(name); err != nil {
		return object.Zero, err
	}
	seed, err := ks.loadSeed(ks.seedPath(name))
	if err != nil {
		return object.Zero, err
	}
	return addressForSeed(seed)
}

// List returns every stored identity, sorted by name. A missing
// directory lists as empty.
func (ks *KeyStore) List() ([]Entry, error) {
	entries, err := os.ReadDir(ks.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".seed") {
			names = append(names, strings.TrimSuffix(entry.Name(), ".seed"))
		}
	}
	sort.Strings(names)

	var result []Entry
	for _, name := range names {
		addr, err := ks.Address(name)
		if err != nil {
			return nil, fmt.Errorf("identity %q: %w", name, err)
		}
		result = append(result, Entry{Name: name, Address: addr})
	}
	return result, nil
}
