// Traincue - training session reminders on your schedule.
package main

import (
	"os"

	"github.com/coachkit/traincue/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
