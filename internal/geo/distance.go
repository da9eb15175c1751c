package geo

import (
	"math"

	"github.com/tollsim/tollsim/pkg/core"
)

// WGS84 ellipsoid.
const (
	wgs84A = 6378137.0
	wgs84F = 1 / 298.257223563
	wgs84B = (1 - wgs84F) * wgs84A

	earthRadiusKm = 6371.0

	vincentyMaxIter   = 200
	vincentyTolerance = 1e-12
)

// PlanarDistance is the Euclidean distance between a and b measured in raw
// coordinate degrees. It has no geographic meaning.
func PlanarDistance(a, b core.Position) float64 {
	return math.Hypot(b.Lat-a.Lat, b.Lon-a.Lon)
}

// GeodesicKm returns the distance in kilometres between a and b on the WGS84
// ellipsoid (Vincenty inverse). Nearly antipodal points where the iteration
// does not converge fall back to the great-circle distance.
func GeodesicKm(a, b core.Position) float64 {
	if a == b {
		return 0
	}
	if d, ok := vincentyMetres(a, b); ok {
		return d / 1000
	}
	return haversineKm(a, b)
}

func vincentyMetres(a, b core.Position) (float64, bool) {
	L := degreesToRadians(b.Lon - a.Lon)
	U1 := math.Atan((1 - wgs84F) * math.Tan(degreesToRadians(a.Lat)))
	U2 := math.Atan((1 - wgs84F) * math.Tan(degreesToRadians(b.Lat)))
	sinU1, cosU1 := math.Sincos(U1)
	sinU2, cosU2 := math.Sincos(U2)

	lambda := L
	var sinSigma, cosSigma, sigma, cos2Alpha, cos2SigmaM float64
	converged := false
	for i := 0; i < vincentyMaxIter; i++ {
		sinLambda, cosLambda := math.Sincos(lambda)
		sinSigma = math.Hypot(cosU2*sinLambda, cosU1*sinU2-sinU1*cosU2*cosLambda)
		if sinSigma == 0 {
			return 0, true
		}
		cosSigma = sinU1*sinU2 + cosU1*cosU2*cosLambda
		sigma = math.Atan2(sinSigma, cosSigma)
		sinAlpha := cosU1 * cosU2 * sinLambda / sinSigma
		cos2Alpha = 1 - sinAlpha*sinAlpha
		if cos2Alpha != 0 {
			cos2SigmaM = cosSigma - 2*sinU1*sinU2/cos2Alpha
		} else {
			// equatorial line
			cos2SigmaM = 0
		}
		C := wgs84F / 16 * cos2Alpha * (4 + wgs84F*(4-3*cos2Alpha))
		prev := lambda
		lambda = L + (1-C)*wgs84F*sinAlpha*
			(sigma+C*sinSigma*(cos2SigmaM+C*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))
		if math.Abs(lambda-prev) < vincentyTolerance {
			converged = true
			break
		}
	}
	if !converged {
		return 0, false
	}

	uSq := cos2Alpha * (wgs84A*wgs84A - wgs84B*wgs84B) / (wgs84B * wgs84B)
	A := 1 + uSq/16384*(4096+uSq*(-768+uSq*(320-175*uSq)))
	B := uSq / 1024 * (256 + uSq*(-128+uSq*(74-47*uSq)))
	deltaSigma := B * sinSigma * (cos2SigmaM + B/4*(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
		B/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))

	return wgs84B * A * (sigma - deltaSigma), true
}

// haversineKm returns the great-circle distance in kilometres.
func haversineKm(a, b core.Position) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLon := degreesToRadians(b.Lon - a.Lon)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
