/*
Package httpserver hosts the assertion generator's HTTP endpoints.

The server mounts a handler's routes on a chi router behind structured
request logging, and adds the operational endpoints every deployment
needs:

  - /livez - liveness probe
  - /readyz - readiness probe, toggled by drain/undrain
  - /drain - mark not ready ahead of shutdown
  - /undrain - mark ready again
  - /debug - pprof, when enabled

A separate listener serves Prometheus metrics so operational scrapes
never share a port with the attested API surface.

The listen address is bound at construction time: failure to bind is an
internal error returned from New, fatal to the caller. There is no retry
and no partial startup.
*/
package httpserver
