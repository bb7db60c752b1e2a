// Package geoip resolves client real addresses to ISO country codes using a
// local MaxMind database.
package geoip

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/oschwald/maxminddb-golang/v2"
)

// countryRecord is a minimal struct for fast MMDB decoding.
type countryRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

// DB holds a GeoIP MMDB database with thread-safe reload support. A nil
// *DB is valid and resolves nothing.
type DB struct {
	path    string
	refresh time.Duration
	logger  *slog.Logger

	mu     sync.RWMutex
	reader *maxminddb.Reader
}

// Open loads the database at path. refresh is the reload period; zero
// disables reloading.
func Open(path string, refresh time.Duration, logger *slog.Logger) (*DB, error) {
	db := &DB{
		path:    path,
		refresh: refresh,
		logger:  logger,
	}
	if err := db.load(); err != nil {
		return nil, err
	}
	return db, nil
}

func (db *DB) load() error {
	reader, err := maxminddb.Open(db.path)
	if err != nil {
		return fmt.Errorf("opening geoip database %s: %w", db.path, err)
	}
	db.setReader(reader)
	db.logger.Info("geoip: database loaded", "path", db.path, "type", reader.Metadata.DatabaseType)
	return nil
}

func (db *DB) setReader(r *maxminddb.Reader) {
	db.mu.Lock()
	old := db.reader
	db.reader = r
	db.mu.Unlock()

	if old != nil {
		old.Close()
	}
}

// LookupCountry returns the ISO country code for addr, or an empty string
// if the address is not in the database.
func (db *DB) LookupCountry(addr netip.Addr) string {
	if db == nil {
		return ""
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.reader == nil {
		return ""
	}

	var record countryRecord
	if err := db.reader.Lookup(addr.Unmap()).Decode(&record); err != nil {
		return ""
	}
	return record.Country.ISOCode
}

// LookupRealAddress resolves a status file real address such as
// "198.51.100.7:1194" or "udp4:198.51.100.7:1194".
func (db *DB) LookupRealAddress(real string) string {
	if db == nil {
		return ""
	}
	addr, ok := ParseRealAddress(real)
	if !ok {
		return ""
	}
	return db.LookupCountry(addr)
}

func (db *DB) reload() {
	if err := db.load(); err != nil {
		db.logger.Error("geoip: failed to reload database", "path", db.path, "err", err)
	}
}

// StartRefresh reloads the database every refresh period until ctx is done.
func (db *DB) StartRefresh(ctx context.Context) {
	if db == nil || db.refresh <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(db.refresh)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				db.reload()
			}
		}
	}()
}

// Close releases resources held by the database.
func (db *DB) Close() error {
	if db == nil {
		return nil
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.reader != nil {
		err := db.reader.Close()
		db.reader = nil
		return err
	}
	return nil
}

// ParseRealAddress extracts the IP address from an OpenVPN real address.
// Newer servers prefix the address with the transport ("udp4:", "tcp6-server:").
func ParseRealAddress(real string) (netip.Addr, bool) {
	s := strings.TrimSpace(real)
	if proto, rest, ok := strings.Cut(s, ":"); ok && (strings.HasPrefix(proto, "udp") || strings.HasPrefix(proto, "tcp")) {
		s = rest
	}
	if s == "" {
		return netip.Addr{}, false
	}

	if ap, err := netip.ParseAddrPort(s); err == nil {
		return ap.Addr().Unmap(), true
	}
	if a, err := netip.ParseAddr(s); err == nil {
		return a.Unmap(), true
	}
	// IPv6 without brackets followed by a port.
	if i := strings.LastIndexByte(s, ':'); i > 0 {
		if a, err := netip.ParseAddr(s[:i]); err == nil {
			return a.Unmap(), true
		}
	}
	return netip.Addr{}, false
}
