package hazard

import (
	"time"

	geojson "github.com/paulmach/go.geojson"
)

// FeatureCollection renders reports as GeoJSON points. Coordinates follow
// the GeoJSON [lng, lat] order.
func FeatureCollection(reports []Report) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range reports {
		f := geojson.NewPointFeature([]float64{r.Lng, r.Lat})
		f.ID = r.ID
		f.SetProperty("user_id", r.UserID)
		f.SetProperty("report_type", string(r.Type))
		f.SetProperty("status", string(r.Status))
		f.SetProperty("description", r.Description)
		if r.Image != "" {
			f.SetProperty("image", r.Image)
		}
		f.SetProperty("created_at", r.CreatedAt.UTC().Format(time.RFC3339))
		fc.AddFeature(f)
	}
	return fc
}
