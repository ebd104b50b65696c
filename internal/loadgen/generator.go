package loadgen

import (
	"math/rand"

	"github.com/google/uuid"
)

// Pitch extent in the service's coordinate system.
const (
	pitchLength = 120.0
	pitchWidth  = 75.0
)

// Ranges of the generated kinematics and crowding.
const (
	minSpeedKmh    = 20.0
	speedRangeKmh  = 100.0
	maxOutfield    = 10
	attackingThird = 80.0
)

// generateScenes returns n reproducible random scenes. Shots are biased
// towards the attacking third, where interference is non-trivial.
func generateScenes(n int, seed int64) []Scene {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // load data, not secrets
	scenes := make([]Scene, n)
	for i := range scenes {
		scenes[i] = generateScene(rng)
	}
	return scenes
}

func generateScene(rng *rand.Rand) Scene {
	ball := [2]float64{
		attackingThird + rng.Float64()*(pitchLength-attackingThird),
		rng.Float64() * pitchWidth,
	}
	keeper := [2]float64{pitchLength - rng.Float64()*6, pitchWidth/2 + (rng.Float64()-0.5)*10}

	outfield := make([][2]float64, rng.Intn(maxOutfield+1))
	for j := range outfield {
		outfield[j] = [2]float64{
			ball[0] + rng.Float64()*(pitchLength-ball[0]),
			rng.Float64() * pitchWidth,
		}
	}

	return Scene{
		ID:             uuid.NewString(),
		PosBalon:       ball,
		VelocidadBalon: minSpeedKmh + rng.Float64()*speedRangeKmh,
		Portero:        keeper,
		Jugadores:      outfield,
	}
}
