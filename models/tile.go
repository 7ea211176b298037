package models

// MapTile is one square of the campus map, addressed by its centre.
type MapTile struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	FileName      string  `gorm:"size:200" json:"file_name"`
	CenterLat     float64 `gorm:"index" json:"center_lat"`
	CenterLon     float64 `gorm:"index" json:"center_lon"`
	BottomLeftLat float64 `json:"bottom_left_lat"`
	BottomLeftLon float64 `json:"bottom_left_lon"`
	TopRightLat   float64 `json:"top_right_lat"`
	TopRightLon   float64 `json:"top_right_lon"`
}

// FeatureTileMap links features to the tiles they are drawn on.
type FeatureTileMap struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	TileID      uint   `gorm:"not null;uniqueIndex:idx_tile_feature" json:"tile_id"`
	FeatureSlug string `gorm:"size:200;not null;uniqueIndex:idx_tile_feature" json:"feature_slug"`
}
