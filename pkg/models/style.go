package models

// StyleResult maps a mood label to the target sentence rewritten in that mood.
type StyleResult map[string]string
