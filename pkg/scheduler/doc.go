// Package scheduler runs periodic in-process jobs on interval or cron
// schedules. Clock and ticker are injectable so tests can trigger rounds
// deterministically.
package scheduler
