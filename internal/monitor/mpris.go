package monitor

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/genricoloni/mpcpresence/internal/domain"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

const (
	mprisPrefix     = "org.mpris.MediaPlayer2."
	mprisObjectPath = "/org/mpris/MediaPlayer2"
	playerInterface = "org.mpris.MediaPlayer2.Player"
)

// MprisSource polls a desktop media player over the D-Bus MPRIS interface.
// It is the Linux alternative to the MPC-HC web interface.
type MprisSource struct {
	logger *zap.Logger
	// player pins a bus name; empty selects the first MPRIS player found
	player string

	mu      sync.Mutex
	conn    DBusClient
	connect func() (DBusClient, error)
}

// NewMprisSource creates a source that connects to the session bus on first poll.
func NewMprisSource(logger *zap.Logger, player string) *MprisSource {
	if player != "" && !strings.HasPrefix(player, mprisPrefix) {
		player = mprisPrefix + player
	}
	return &MprisSource{
		logger:  logger,
		player:  player,
		connect: NewStdDBusClient,
	}
}

// Poll reads PlaybackStatus, Metadata and Position from the selected player.
func (s *MprisSource) Poll(ctx context.Context) (*domain.MediaStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn, err := s.client()
	if err != nil {
		return nil, fmt.Errorf("%w: session bus: %v", domain.ErrNoSession, err)
	}

	player, err := s.findPlayer(conn)
	if err != nil {
		return nil, err
	}

	statusVariant, err := conn.GetProperty(player, mprisObjectPath, playerInterface+".PlaybackStatus")
	if err != nil {
		return nil, fmt.Errorf("failed to get playback status: %w", err)
	}
	status, ok := statusVariant.Value().(string)
	if !ok {
		return nil, fmt.Errorf("invalid playback status format")
	}

	ms := &domain.MediaStatus{State: parseStatus(status)}
	if ms.State == domain.StateStopped {
		return ms, nil
	}

	metaVariant, err := conn.GetProperty(player, mprisObjectPath, playerInterface+".Metadata")
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata: %w", err)
	}
	metadata, ok := metaVariant.Value().(map[string]dbus.Variant)
	if !ok {
		return nil, fmt.Errorf("invalid metadata format")
	}

	ms.Filename = mediaName(metadata)
	if ms.Filename == "" {
		return nil, fmt.Errorf("player %s reports no url or title", player)
	}
	ms.Duration = int(microseconds(metadata["mpris:length"]) / 1e6)

	// Position is optional in MPRIS; a missing value reads as zero.
	if posVariant, err := conn.GetProperty(player, mprisObjectPath, playerInterface+".Position"); err == nil {
		ms.Position = int(microseconds(posVariant) / 1e6)
	} else {
		s.logger.Debug("Player does not report position", zap.String("player", player), zap.Error(err))
	}

	ms.PositionText = FormatClock(ms.Position)
	ms.DurationText = FormatClock(ms.Duration)
	return ms, nil
}

// Close releases the bus connection, if any.
func (s *MprisSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *MprisSource) client() (DBusClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return s.conn, nil
	}
	conn, err := s.connect()
	if err != nil {
		return nil, err
	}
	s.logger.Info("Connected to session bus")
	s.conn = conn
	return conn, nil
}

// findPlayer returns the configured player if present, otherwise the first
// MPRIS name in sorted order.
func (s *MprisSource) findPlayer(conn DBusClient) (string, error) {
	names, err := conn.ListNames()
	if err != nil {
		// Drop the connection so the next poll reconnects.
		_ = s.Close()
		return "", fmt.Errorf("%w: failed to list bus names: %v", domain.ErrNoSession, err)
	}

	var players []string
	for _, name := range names {
		if !strings.HasPrefix(name, mprisPrefix) {
			continue
		}
		if s.player != "" && name == s.player {
			return name, nil
		}
		players = append(players, name)
	}

	if s.player != "" || len(players) == 0 {
		return "", domain.ErrNoSession
	}
	sort.Strings(players)
	return players[0], nil
}

func parseStatus(status string) domain.PlaybackState {
	switch status {
	case "Playing":
		return domain.StatePlaying
	case "Paused":
		return domain.StatePaused
	default:
		return domain.StateStopped
	}
}

// mediaName prefers the basename of xesam:url so the normalizer sees a
// filename; players without a url fall back to xesam:title.
func mediaName(metadata map[string]dbus.Variant) string {
	if v, ok := metadata["xesam:url"]; ok {
		if raw, ok := v.Value().(string); ok && raw != "" {
			if u, err := url.Parse(raw); err == nil && u.Path != "" {
				return path.Base(u.Path)
			}
		}
	}
	if v, ok := metadata["xesam:title"]; ok {
		if title, ok := v.Value().(string); ok {
			return title
		}
	}
	return ""
}

// microseconds accepts the integer widths players use in practice.
func microseconds(v dbus.Variant) int64 {
	switch n := v.Value().(type) {
	case int64:
		return n
	case uint64:
		return int64(n)
	case int32:
		return int64(n)
	case uint32:
		return int64(n)
	default:
		return 0
	}
}
