package db

import "time"

// EmotionSession records one detected emotion that recommendations were requested for.
type EmotionSession struct {
	ID         int64     `json:"id"`
	UserID     *int64    `json:"userId"`
	Emotion    string    `json:"emotion"`
	Confidence int       `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewEmotionSession is the insert shape of an EmotionSession.
type NewEmotionSession struct {
	UserID     *int64 `json:"userId"`
	Emotion    string `json:"emotion" validate:"required,max=32"`
	Confidence *int   `json:"confidence" validate:"required,min=0,max=100"`
}

// MusicRecommendation is one track recommended for a session.
type MusicRecommendation struct {
	ID         int64   `json:"id"`
	SessionID  int64   `json:"sessionId"`
	TrackID    string  `json:"trackId"`
	TrackName  string  `json:"trackName"`
	ArtistName string  `json:"artistName"`
	AlbumCover *string `json:"albumCover"`
	PreviewURL *string `json:"previewUrl"`
	MatchScore *int    `json:"matchScore"`
}

// NewMusicRecommendation is the insert shape of a MusicRecommendation.
type NewMusicRecommendation struct {
	SessionID  int64
	TrackID    string
	TrackName  string
	ArtistName string
	AlbumCover *string
	PreviewURL *string
	MatchScore *int
}
