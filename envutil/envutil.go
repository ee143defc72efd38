package envutil

import (
	"log"
	"os"
	"strconv"
	"time"
)

// GetenvDefault gets the value of an environment variable, or returns the
// specified default value if that variable is not set.
func GetenvDefault(name, defaultValue string) string {
	val, found := os.LookupEnv(name)
	if !found {
		return defaultValue
	}
	return val
}

// GetenvDefaultInt gets an environment variable as an int, or else returns the default
func GetenvDefaultInt(name string, defaultVal int) int {
	val, found := os.LookupEnv(name)
	if !found {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("environment variable %s should be an integer: %v", name, err)
	}
	return intVal
}

// GetenvDefaultFloat gets an environment variable as a float64, or else returns the default
func GetenvDefaultFloat(name string, defaultVal float64) float64 {
	val, found := os.LookupEnv(name)
	if !found {
		return defaultVal
	}
	floatVal, err := strconv.ParseFloat(val, 64)
	if err != nil {
		log.Fatalf("environment variable %s should be a number: %v", name, err)
	}
	return floatVal
}

// GetenvDefaultSeconds gets an environment variable holding a whole number of
// seconds as a time.Duration, or else returns the default.
func GetenvDefaultSeconds(name string, defaultVal time.Duration) time.Duration {
	val, found := os.LookupEnv(name)
	if !found {
		return defaultVal
	}
	secs, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("environment variable %s should be an integer number of seconds: %v", name, err)
	}
	return time.Duration(secs) * time.Second
}
