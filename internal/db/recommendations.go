package db

import (
	"context"
	"fmt"
)

// CreateMusicRecommendation inserts a recommendation for an existing session.
func (db *DB) CreateMusicRecommendation(ctx context.Context, r NewMusicRecommendation) (*MusicRecommendation, error) {
	query := `
		INSERT INTO music_recommendations
			(session_id, track_id, track_name, artist_name, album_cover, preview_url, match_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	rec := &MusicRecommendation{
		SessionID:  r.SessionID,
		TrackID:    r.TrackID,
		TrackName:  r.TrackName,
		ArtistName: r.ArtistName,
		AlbumCover: r.AlbumCover,
		PreviewURL: r.PreviewURL,
		MatchScore: r.MatchScore,
	}
	err := db.pool.QueryRow(ctx, query,
		r.SessionID,
		r.TrackID,
		r.TrackName,
		r.ArtistName,
		r.AlbumCover,
		r.PreviewURL,
		r.MatchScore,
	).Scan(&rec.ID)
	if err != nil {
		return nil, fmt.Errorf("inserting music recommendation: %w", err)
	}
	return rec, nil
}

// RecommendationsBySession returns a session's recommendations in insertion order.
func (db *DB) RecommendationsBySession(ctx context.Context, sessionID int64) ([]MusicRecommendation, error) {
	query := `
		SELECT id, session_id, track_id, track_name, artist_name, album_cover, preview_url, match_score
		FROM music_recommendations
		WHERE session_id = $1
		ORDER BY id
	`
	rows, err := db.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying recommendations: %w", err)
	}
	defer rows.Close()

	recs := []MusicRecommendation{}
	for rows.Next() {
		var r MusicRecommendation
		if err := rows.Scan(
			&r.ID,
			&r.SessionID,
			&r.TrackID,
			&r.TrackName,
			&r.ArtistName,
			&r.AlbumCover,
			&r.PreviewURL,
			&r.MatchScore,
		); err != nil {
			return nil, fmt.Errorf("scanning recommendation: %w", err)
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recommendations: %w", err)
	}
	return recs, nil
}
