package geo

import (
	"fmt"
	"math"
	"strings"
)

// Coordinates in WPML carry more precision than the 6 places used for
// display; 7 places is roughly 1cm at the equator.
const displayPlaces = 7

func LatFormat(lat float64, dms bool) string {
	if !dms {
		return fmt.Sprintf("%.*f", displayPlaces, lat)
	}
	return dms_format(lat, "%02d°%02d'%05.2f\"%c", "NS")
}

func LonFormat(lon float64, dms bool) string {
	if !dms {
		return fmt.Sprintf("%.*f", displayPlaces, lon)
	}
	return dms_format(lon, "%03d°%02d'%05.2f\"%c", "EW")
}

// PositionFormat gives "lat lon", decimal or DMS.
func PositionFormat(lat float64, lon float64, dms bool) string {
	var sb strings.Builder
	sb.WriteString(LatFormat(lat, dms))
	sb.WriteByte(' ')
	sb.WriteString(LonFormat(lon, dms))
	return sb.String()
}

// AngleFormat renders an angle in whole degrees with the degree sign.
func AngleFormat(a float64) string {
	return fmt.Sprintf("%.0f°", a)
}

func dms_format(coord float64, ofmt string, ind string) string {
	q := ind[0]
	if coord < 0.0 {
		q = ind[1]
	}
	ds := math.Abs(coord)
	d := int(ds)
	rem := (ds - float64(d)) * 3600.0
	m := int(rem / 60)
	s := rem - float64(m*60)
	// %05.2f would print 60.00
	if math.Round(s*100) >= 6000 {
		m++
		s = 0
	}
	if m == 60 {
		m = 0
		d++
	}
	return fmt.Sprintf(ofmt, d, m, s, q)
}
