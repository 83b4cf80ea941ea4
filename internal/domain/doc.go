// Package domain contains the core domain entities and value objects for atdrive.
//
// This package is the innermost layer. It has no dependencies on serial ports,
// logging or clocks and holds only the values that flow between the tasks.
//
// # Entities
//
//   - [Command]: one payload written to the modem plus the pause that follows it
//   - [Script]: an immutable ordered sequence of commands
//   - [Action]: a dispatch instruction for the transmitter (advance or restart)
//   - [Frame]: an owned buffer of bytes captured by one serial read
//   - [Outcome]: the classification of a frame (success, failure, inconclusive)
package domain
