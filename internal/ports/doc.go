// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// # Port Interfaces
//
//   - [SerialLink]: raw byte I/O with the modem
//   - [Logger]: structured logging abstraction
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with go.bug.st/serial
// and zerolog, and tests implement them with in-memory fakes.
package ports
