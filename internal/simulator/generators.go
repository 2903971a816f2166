package simulator

import (
	"math"
	"math/rand"
	"time"

	"github.com/hearthhome/hearth-core/internal/device"
)

// Generation parameters per sensor type.
const (
	temperatureMin  = 18.0
	temperatureMax  = 28.0
	temperatureStep = 0.5

	humidityMin  = 30.0
	humidityMax  = 80.0
	humidityStep = 2.0

	motionProbability = 0.10
	doorFlipChance    = 0.05

	lightBaseMin   = 100.0
	lightDayAmp    = 400.0
	lightNoiseSpan = 50.0
)

// generators produces sensor readings. Smooth modes carry a random walk
// whose state lives here, seeded at comfortable midpoints, independent
// of whatever value the device last persisted.
type generators struct {
	rng *rand.Rand
	now func() time.Time

	temperature float64
	humidity    float64
	door        bool
}

func newGenerators(rng *rand.Rand, now func() time.Time) *generators {
	return &generators{
		rng:         rng,
		now:         now,
		temperature: 22.0,
		humidity:    50.0,
	}
}

// next computes a reading for the given sensor type and mode. ok is
// false when the tick produces no reading at all (an unflipped door or
// an unrecognised type).
func (g *generators) next(devType string, mode device.Mode) (value any, ok bool) {
	switch devType {
	case device.TypeTemperature:
		if mode == device.ModeSmooth {
			g.temperature = clamp(g.temperature+g.uniform(-temperatureStep, temperatureStep),
				temperatureMin, temperatureMax)
			return round1(g.temperature), true
		}
		return round1(g.uniform(temperatureMin, temperatureMax)), true

	case device.TypeHumidity:
		if mode == device.ModeSmooth {
			g.humidity = clamp(g.humidity+g.uniform(-humidityStep, humidityStep),
				humidityMin, humidityMax)
			return round1(g.humidity), true
		}
		return round1(g.uniform(humidityMin, humidityMax)), true

	case device.TypeMotion:
		// Independent trials, no debounce.
		return g.rng.Float64() < motionProbability, true

	case device.TypeLight:
		// Triangular daily profile peaking at noon, plus noise.
		// Always recomputed, mode has no effect.
		hour := float64(g.now().Hour())
		base := lightBaseMin + lightDayAmp*(1-math.Abs(hour-12)/12)
		lux := math.Round(base + g.uniform(-lightNoiseSpan, lightNoiseSpan))
		if lux < 0 {
			lux = 0
		}
		return lux, true

	case device.TypeDoor:
		// Rare flips; a tick without a flip produces no reading.
		if g.rng.Float64() < doorFlipChance {
			g.door = !g.door
			return g.door, true
		}
		return nil, false
	}

	return nil, false
}

// uniform draws from [min, max).
func (g *generators) uniform(min, max float64) float64 {
	return min + g.rng.Float64()*(max-min)
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
