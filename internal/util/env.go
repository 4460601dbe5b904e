// Package util contains small helpers shared across the server
package util

import "os"

// Getenv will return an environment variable or a default value
func Getenv(key, defaultValue string) string {
	val := os.Getenv(key)
	if val != "" {
		return val
	}

	return defaultValue
}

// SetEnv sets an environment variable and returns a function that restores
// the previous value
func SetEnv(key, value string) func() {
	prev, found := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		panic(err)
	}

	return func() {
		if !found {
			if err := os.Unsetenv(key); err != nil {
				panic(err)
			}

			return
		}

		if err := os.Setenv(key, prev); err != nil {
			panic(err)
		}
	}
}
