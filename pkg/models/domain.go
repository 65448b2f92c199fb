package models

import "fmt"

// Song is a playlist track queued for download.
type Song struct {
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	Genre    string  `json:"genre"`    // playlist name the track was found in
	Duration float64 `json:"duration"` // seconds
}

func (s Song) String() string {
	return fmt.Sprintf("%s - %s", s.Title, s.Artist)
}

// CorrespondenceEntry maps an original file name to its anonymized name.
type CorrespondenceEntry struct {
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
	Genre   string `json:"genre"`
}

// CorrespondenceColumns is the header of a correspondence CSV.
var CorrespondenceColumns = []string{"old_name", "new_name", "genre"}
