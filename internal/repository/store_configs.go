package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const configColumns = `id, user_id, target_length_minutes, clip_length_preference, structure, breadth_depth,
    voice_id, narration_depth, music_style, transition_style, delivery_day, delivery_hour, delivery_minute,
    delivery_method, is_active`

// ListActiveConfigs returns every DigestConfig with isActive = true, the
// candidate set the orchestrator's cron loop iterates each hour.
func (s *Store) ListActiveConfigs(ctx context.Context) ([]*DigestConfig, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+configColumns+` FROM digest_configs WHERE is_active = 1`)
	if err != nil {
		return nil, fmt.Errorf("list active configs: %w", err)
	}
	defer rows.Close()

	var configs []*DigestConfig
	for rows.Next() {
		c, err := scanConfigRows(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}

// ConfigByID fetches a DigestConfig by identifier.
func (s *Store) ConfigByID(ctx context.Context, id int64) (*DigestConfig, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+configColumns+` FROM digest_configs WHERE id = ?`, id)
	return scanConfig(row)
}

// CreateConfig inserts a new DigestConfig.
func (s *Store) CreateConfig(ctx context.Context, c *DigestConfig) (*DigestConfig, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO digest_configs (user_id, target_length_minutes, clip_length_preference, structure, breadth_depth,
            voice_id, narration_depth, music_style, transition_style, delivery_day, delivery_hour, delivery_minute,
            delivery_method, is_active)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.UserID, c.TargetLengthMinutes, c.ClipLengthPreference, c.Structure, c.BreadthDepth,
		c.VoiceID, c.NarrationDepth, c.MusicStyle, c.TransitionStyle, int(c.DeliveryDay), c.DeliveryHour, c.DeliveryMinute,
		c.DeliveryMethod, boolToInt(c.IsActive),
	)
	if err != nil {
		return nil, fmt.Errorf("insert digest config: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.ConfigByID(ctx, id)
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func scanConfig(row *sql.Row) (*DigestConfig, error) {
	return scanConfigRows(row)
}

func scanConfigRows(scanner interface{ Scan(dest ...any) error }) (*DigestConfig, error) {
	var (
		id           int64
		userID       string
		targetLen    int
		clipLenPref  string
		structure    string
		breadthDepth int
		voiceID      string
		narrDepth    string
		musicStyle   string
		transStyle   string
		deliveryDay  int
		deliveryHour int
		deliveryMin  int
		deliveryMeth string
		isActive     int
	)
	if err := scanner.Scan(&id, &userID, &targetLen, &clipLenPref, &structure, &breadthDepth,
		&voiceID, &narrDepth, &musicStyle, &transStyle, &deliveryDay, &deliveryHour, &deliveryMin,
		&deliveryMeth, &isActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &DigestConfig{
		ID:                   id,
		UserID:               userID,
		TargetLengthMinutes:  targetLen,
		ClipLengthPreference: ClipLengthPreference(clipLenPref),
		Structure:            DigestStructure(structure),
		BreadthDepth:         breadthDepth,
		VoiceID:              voiceID,
		NarrationDepth:       NarrationDepth(narrDepth),
		MusicStyle:           musicStyle,
		TransitionStyle:      TransitionStyle(transStyle),
		DeliveryDay:          time.Weekday(deliveryDay),
		DeliveryHour:         deliveryHour,
		DeliveryMinute:       deliveryMin,
		DeliveryMethod:       DeliveryMethod(deliveryMeth),
		IsActive:             isActive != 0,
	}, nil
}
