package actor

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"ride-dispatch/internal/general/contracts"
)

var (
	vehicleBrands = []string{"Toyota", "Honda", "Hyundai", "Chevrolet", "Volkswagen", "Ford"}
	vehicleModels = []string{"Corolla", "Civic", "HB20", "Onix", "Polo", "Ka"}
	vehicleColors = []string{"White", "Silver", "Black", "Blue", "Red"}
)

func pick(items []string) string { return items[rand.IntN(len(items))] }

// RandomDriverProfile invents display data for a simulated driver.
func RandomDriverProfile(driverID string) contracts.DriverProfile {
	return contracts.DriverProfile{
		Name: "Driver " + driverID,
		Vehicle: contracts.VehicleInfo{
			Brand: pick(vehicleBrands),
			Model: pick(vehicleModels),
			Color: pick(vehicleColors),
			Plate: randomPlate(),
			Year:  2018 + rand.IntN(6),
		},
		Rating: math.Round((4+rand.Float64())*10) / 10,
		Phone:  randomPhone(),
	}
}

// RandomPassengerProfile invents display data for a simulated passenger.
func RandomPassengerProfile(passengerID string) contracts.PassengerProfile {
	return contracts.PassengerProfile{Name: "Passenger " + passengerID, Phone: randomPhone()}
}

func randomPlate() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	return fmt.Sprintf("%c%c%c-%04d",
		letters[rand.IntN(26)], letters[rand.IntN(26)], letters[rand.IntN(26)], rand.IntN(10000))
}

func randomPhone() string {
	return fmt.Sprintf("(11) 9%04d-%04d", rand.IntN(10000), rand.IntN(10000))
}

// between returns a uniformly random duration in [lo, hi].
func between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}
