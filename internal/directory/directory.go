// Package directory holds the name/symbol -> canonical symbol mapping used to
// resolve free-text queries.
package directory

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"cryptoagent/internal/coinmarketcap"
)

// Lister provides the asset listing a Directory is built from.
type Lister interface {
	ListCryptocurrencies(ctx context.Context) ([]coinmarketcap.Listing, error)
}

// Directory maps lower-cased asset names and symbols to canonical uppercase
// symbols. The zero value is an empty directory. A Directory is never mutated
// after construction, so it is safe for concurrent readers.
type Directory struct {
	keys    map[string]string
	symbols map[string]struct{}
}

// New builds a Directory from listings. Each listing registers its lower-cased
// name and lower-cased symbol; on key collisions the later listing wins.
func New(listings []coinmarketcap.Listing) Directory {
	d := Directory{
		keys:    make(map[string]string, len(listings)*2),
		symbols: make(map[string]struct{}, len(listings)),
	}
	for _, l := range listings {
		symbol := strings.ToUpper(l.Symbol)
		if symbol == "" {
			continue
		}
		if name := strings.ToLower(l.Name); name != "" {
			d.keys[name] = symbol
		}
		d.keys[strings.ToLower(symbol)] = symbol
	}
	// symbols is derived after all overwrites so it only holds reachable values.
	for _, s := range d.keys {
		d.symbols[s] = struct{}{}
	}
	return d
}

// FromMap builds a Directory from an explicit key -> symbol mapping.
// Keys are lower-cased and symbols upper-cased.
func FromMap(m map[string]string) Directory {
	d := Directory{
		keys:    make(map[string]string, len(m)),
		symbols: make(map[string]struct{}, len(m)),
	}
	for k, v := range m {
		s := strings.ToUpper(v)
		d.keys[strings.ToLower(k)] = s
		d.symbols[s] = struct{}{}
	}
	return d
}

// Build performs one listing call and returns the resulting Directory.
// Any failure yields an empty Directory; errors never cross this boundary.
func Build(ctx context.Context, lister Lister, log logrus.FieldLogger) Directory {
	listings, err := lister.ListCryptocurrencies(ctx)
	if err != nil {
		if errors.Is(err, coinmarketcap.ErrMissingAPIKey) {
			log.Warn("COINMARKETCAP_API_KEY not set; symbol directory is empty")
		} else {
			log.WithError(err).Warn("failed to fetch cryptocurrency metadata; symbol directory is empty")
		}
		return Directory{}
	}
	d := New(listings)
	log.WithFields(logrus.Fields{"assets": len(listings), "keys": d.Len()}).Info("symbol directory built")
	return d
}

// Lookup returns the canonical symbol registered for key. key must already be
// lower-cased.
func (d Directory) Lookup(key string) (string, bool) {
	s, ok := d.keys[key]
	return s, ok
}

// HasSymbol reports whether symbol is the canonical value of any key.
func (d Directory) HasSymbol(symbol string) bool {
	_, ok := d.symbols[symbol]
	return ok
}

// Len returns the number of keys.
func (d Directory) Len() int { return len(d.keys) }

// Empty reports whether the directory has no keys.
func (d Directory) Empty() bool { return len(d.keys) == 0 }
