package strava

import (
	"fmt"
	"math"

	"albumrun/internal/models"
)

const milesPerMeter = 0.000621371

// MetersToMiles converts a distance in meters to miles.
func MetersToMiles(meters float64) float64 {
	return meters * milesPerMeter
}

// PacePerMile formats a pace as "M:SS" per mile. Zero distance yields "0:00".
func PacePerMile(seconds int, miles float64) string {
	if miles == 0 {
		return "0:00"
	}
	paceSeconds := float64(seconds) / miles
	m := int(paceSeconds) / 60
	s := int(paceSeconds) % 60
	return fmt.Sprintf("%d:%02d", m, s)
}

// Metrics flattens an activity into the namespaced fields carried on an
// album record.
func Metrics(a Activity) *models.StravaMetrics {
	miles := MetersToMiles(a.Distance)
	return &models.StravaMetrics{
		ActivityID:          a.ID,
		ActivityName:        a.Name,
		ActivityType:        a.Type,
		StartDate:           a.StartDate,
		DistanceMiles:       math.Round(miles*100) / 100,
		DistanceMeters:      a.Distance,
		MovingTimeSeconds:   a.MovingTime,
		ElapsedTimeSeconds:  a.ElapsedTime,
		PacePerMile:         PacePerMile(a.MovingTime, miles),
		ElevationGainMeters: a.TotalElevationGain,
		AverageSpeedMPS:     a.AverageSpeed,
		MaxSpeedMPS:         a.MaxSpeed,
		AverageHeartrate:    a.AverageHeartrate,
		MaxHeartrate:        a.MaxHeartrate,
		AverageCadence:      a.AverageCadence,
		SufferScore:         a.SufferScore,
	}
}
