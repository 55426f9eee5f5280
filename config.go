// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// ConnectionConfig describes how to reach and authenticate against a server.
type ConnectionConfig struct {
	// Host is the server hostname or IP address.
	Host string

	// Port is the server TCP port, typically 5900 plus the display number.
	Port uint16

	// Password is the VNC password, if the negotiated security type needs one.
	Password string

	// Timeout bounds the initial connection and handshake.
	Timeout time.Duration
}

// DisplayConfig controls which encodings are offered and how lossy ones are tuned.
type DisplayConfig struct {
	// Encodings lists the encoding types offered to the server, in priority
	// order. The first entry the server also supports wins nothing by
	// itself - RFB lets the server pick per rectangle - but servers
	// generally prefer earlier entries when more than one is usable.
	Encodings []int32

	// Quality is a JPEG quality hint (0-9). EffectiveEncodings adds no
	// quality-level pseudo-encoding, so the value is not sent to the server.
	Quality *uint8

	// Compression is a zlib compression-level hint (0-9). EffectiveEncodings
	// adds no compression-level pseudo-encoding, so the value is not sent to
	// the server.
	Compression *uint8
}

// DefaultEncodings returns the encoding priority list used by
// DefaultEngineConfig: Tight and ZRLE first since both carry their own
// compression, then Hextile and RRE, CopyRect, and finally Raw as the
// universally-supported fallback.
func DefaultEncodings() []int32 {
	return []int32{7, 16, 5, 2, 1, 0}
}

// TLSConfig controls transport encryption for servers that require it ahead
// of the RFB handshake (e.g. VNC-over-TLS repeaters).
type TLSConfig struct {
	// Enabled turns on TLS for the underlying connection.
	Enabled bool

	// ServerName overrides the name used for certificate verification; if
	// empty, the dialed host is used.
	ServerName string

	// CAFile, if set, is a PEM file of additional trusted root certificates.
	CAFile string

	// InsecureSkipVerify disables certificate validation entirely. This
	// must never be enabled outside of testing against a known server.
	InsecureSkipVerify bool
}

// SecurityConfig controls transport and access-mode settings layered on top
// of RFB's own security-type negotiation.
type SecurityConfig struct {
	// TLS describes transport encryption. BuildClientConfig does not read
	// it; the caller dials the connection, plain or TLS.
	TLS *TLSConfig

	// ViewOnly marks a session as view-only. BuildClientConfig does not
	// read it, and ClientConn sends key, pointer and cut-text events
	// regardless.
	ViewOnly bool
}

// InputConfig describes pacing of outgoing pointer events. BuildClientConfig
// does not read it, and ClientConn sends every pointer event immediately.
type InputConfig struct {
	// PointerRateHz is the pointer event rate cap.
	PointerRateHz uint32

	// PointerThrottle enables the rate cap.
	PointerThrottle bool
}

// ReconnectConfig controls the retry schedule after a transport failure.
type ReconnectConfig struct {
	// Enabled turns on reconnection: when false, ReconnectPolicy.Next never
	// yields a retry. Nothing else reads it.
	Enabled bool

	// MaxRetries bounds the number of reconnect attempts. Zero means retry
	// indefinitely.
	MaxRetries uint32

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the delay between retries as it grows.
	MaxBackoff time.Duration

	// Jitter is the randomization factor (0.0-1.0) applied to each backoff
	// interval to avoid reconnect storms against a recovering server.
	Jitter float64
}

// ContentCacheConfig controls the client-side content cache protocol
// (session cache, encodings 100/101, and the persistent disk-backed cache,
// encodings 102/103).
type ContentCacheConfig struct {
	// Enabled turns on the content cache capability advertisement and the
	// corresponding decoders.
	Enabled bool

	// SizeMB is the byte budget for each enabled cache, in megabytes.
	SizeMB uint64

	// MaxAge is an entry age limit. BuildClientConfig does not pass it on:
	// the caches evict by ARC recency/frequency only, and no entry expires
	// by age.
	MaxAge time.Duration

	// MinRectSize is a minimum rectangle size, in pixels. BuildClientConfig
	// does not pass it on, and the caches store rectangles of every size.
	MinRectSize uint32

	// CleanupThreshold is a utilization fraction (0.0-1.0).
	// ValidateEngineConfig range-checks it; nothing else reads it, and no
	// cleanup runs ahead of ARC eviction.
	CleanupThreshold float64

	// PersistentPath, if set, opens a disk-backed PersistentCache at this
	// path in addition to the in-memory SessionCache. Leaving it empty
	// keeps the cache session-scoped only.
	PersistentPath string
}

// EngineConfig is the complete declarative configuration for a VNC client
// session: connection target, display preferences, security posture, input
// pacing, reconnection policy, and content cache behavior. ClientConfig
// (see client.go) is the lower-level, already-wired-up counterpart consumed
// directly by ClientWithContext; BuildClientConfig bridges the two.
type EngineConfig struct {
	Connection   ConnectionConfig
	Display      DisplayConfig
	Security     SecurityConfig
	Input        InputConfig
	Reconnect    ReconnectConfig
	ContentCache ContentCacheConfig
}

// DefaultEngineConfig returns an EngineConfig with the same defaults the
// reference client ships: a 10s connect timeout, the encoding priority list
// from DefaultEncodings, 60Hz throttled pointer events, reconnection
// disabled, and a 2GB content cache enabled by default.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Connection: ConnectionConfig{
			Port:    5900,
			Timeout: 10 * time.Second,
		},
		Display: DisplayConfig{
			Encodings: DefaultEncodings(),
		},
		Input: InputConfig{
			PointerRateHz:   60,
			PointerThrottle: true,
		},
		Reconnect: ReconnectConfig{
			Enabled:        false,
			MaxRetries:     5,
			InitialBackoff: time.Second,
			MaxBackoff:     30 * time.Second,
			Jitter:         0.1,
		},
		ContentCache: ContentCacheConfig{
			Enabled:          true,
			SizeMB:           2048,
			MaxAge:           5 * time.Minute,
			MinRectSize:      4096,
			CleanupThreshold: 0.8,
		},
	}
}

// ValidateEngineConfig rejects configuration values that would otherwise
// fail confusingly later: an empty host, a zero port, no encodings offered,
// an out-of-range jitter or cleanup threshold, or a content cache enabled
// with no byte budget.
func ValidateEngineConfig(cfg *EngineConfig) error {
	if cfg == nil {
		return configurationError("ValidateEngineConfig", "config must not be nil", nil)
	}
	if cfg.Connection.Host == "" {
		return configurationError("ValidateEngineConfig", "connection host must not be empty", nil)
	}
	if cfg.Connection.Port == 0 {
		return configurationError("ValidateEngineConfig", "connection port must not be zero", nil)
	}
	if len(cfg.Display.Encodings) == 0 {
		return configurationError("ValidateEngineConfig", "at least one encoding must be offered", nil)
	}
	if cfg.Reconnect.Jitter < 0.0 || cfg.Reconnect.Jitter > 1.0 {
		return configurationError("ValidateEngineConfig", "reconnect jitter must be between 0.0 and 1.0", nil)
	}
	if cfg.ContentCache.Enabled && cfg.ContentCache.SizeMB == 0 {
		return configurationError("ValidateEngineConfig", "content cache size must not be zero when enabled", nil)
	}
	if cfg.ContentCache.CleanupThreshold < 0.0 || cfg.ContentCache.CleanupThreshold > 1.0 {
		return configurationError("ValidateEngineConfig", "content cache cleanup threshold must be between 0.0 and 1.0", nil)
	}
	return nil
}

// EffectiveEncodings returns the encoding list to advertise to the server:
// the cache encodings ahead of the configured list when the content cache
// is enabled, then the configured real-pixel encodings, then the
// DesktopSize and Cursor pseudo-encodings the coordinator always handles,
// then the cache capability pseudo-encoding when the content cache is
// enabled.
func (cfg *EngineConfig) EffectiveEncodings() []int32 {
	encodings := make([]int32, 0, len(cfg.Display.Encodings)+5)
	if cfg.ContentCache.Enabled {
		encodings = append(encodings, EncodingCachedRect, EncodingCachedRectInit)
	}
	encodings = append(encodings, cfg.Display.Encodings...)
	encodings = append(encodings, pseudoEncodingDesktopSize, pseudoEncodingCursor)
	if cfg.ContentCache.Enabled {
		encodings = append(encodings, pseudoEncodingCacheCapability)
	}
	return encodings
}

// Addr formats the connection target as a dial-ready "host:port" string.
func (cfg *ConnectionConfig) Addr() string {
	return net.JoinHostPort(cfg.Host, strconv.Itoa(int(cfg.Port)))
}

// ParseServerAddress splits a VNC server address into host and TCP port. A
// bare hostname gets defaultPort; "host:N" with N below 100 is a display
// number and maps to port 5900+N, while N of 100 or more is a port;
// "host::N" is always port N. "host:" is rejected as malformed.
func ParseServerAddress(addr string, defaultPort uint16) (host string, port uint16, err error) {
	if addr == "" {
		return "", 0, configurationError("ParseServerAddress", "address must not be empty", nil)
	}

	rawPort := false
	h, p, splitErr := net.SplitHostPort(addr)
	if splitErr != nil {
		if i := strings.Index(addr, "::"); i > 0 && strings.Count(addr, ":") == 2 {
			// "host::N" names the TCP port directly.
			h, p, rawPort = addr[:i], addr[i+2:], true
		} else if addrErr, ok := splitErr.(*net.AddrError); ok && addrErr.Err == "missing port in address" {
			// No port present at all - accept the whole string as a bare host.
			return addr, defaultPort, nil
		} else {
			return "", 0, configurationError("ParseServerAddress", fmt.Sprintf("invalid address %q", addr), splitErr)
		}
	}

	parsed, convErr := strconv.ParseUint(p, 10, 16)
	if convErr != nil {
		return "", 0, configurationError("ParseServerAddress", fmt.Sprintf("invalid port in address %q", addr), convErr)
	}
	if !rawPort && parsed < 100 {
		parsed += 5900
	}
	return h, uint16(parsed), nil
}

// BuildClientConfig translates an EngineConfig into the lower-level
// ClientConfig options consumed by ClientWithContext, wiring up the content
// cache when enabled. It does not dial: the caller still establishes the
// net.Conn and passes it, along with the returned config, to
// ClientWithContext.
func BuildClientConfig(cfg *EngineConfig, logger Logger) (*ClientConfig, error) {
	if err := ValidateEngineConfig(cfg); err != nil {
		return nil, err
	}

	out := &ClientConfig{
		Logger:         logger,
		ConnectTimeout: cfg.Connection.Timeout,
		Encodings:      cfg.EffectiveEncodings(),
	}

	if cfg.ContentCache.Enabled {
		out.SessionCache = NewSessionCache(int(cfg.ContentCache.SizeMB) * 1024 * 1024)
		if cfg.ContentCache.PersistentPath != "" {
			pc, err := OpenPersistentCache(cfg.ContentCache.PersistentPath, int(cfg.ContentCache.SizeMB)*1024*1024)
			if err != nil {
				return nil, err
			}
			out.PersistentCache = pc
		}
	}

	return out, nil
}
