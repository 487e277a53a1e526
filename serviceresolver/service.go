// Package serviceresolver discovers running assertion service instances
// through DNS SRV records, for clients that need to pick an endpoint
// without a central registry.
package serviceresolver

import (
	"fmt"

	"github.com/miekg/dns"
)

// DefaultResolverAddr is the local stub resolver.
const DefaultResolverAddr = "127.0.0.53:53"

// ServiceInstances lists the discovered endpoints of one assertion
// service deployment.
type ServiceInstances struct {
	// Domain is the SRV name the instances were resolved from.
	Domain string

	// Targets are the SRV target host names, one per instance.
	Targets []string
}

// Resolver resolves service domains against one DNS server.
type Resolver struct {
	// Addr is the DNS server address; DefaultResolverAddr when empty.
	Addr string
}

// ResolveService looks up the SRV records for the given domains and
// collects the targets. Domains that fail to resolve are skipped;
// resolution fails only if no domain yielded any target.
func (r *Resolver) ResolveService(domains []string) (*ServiceInstances, error) {
	addr := r.Addr
	if addr == "" {
		addr = DefaultResolverAddr
	}

	instances := &ServiceInstances{}
	for _, domain := range domains {
		targets, err := resolveSRVTargets(domain, addr)
		if err != nil {
			continue
		}

		if instances.Domain == "" {
			instances.Domain = domain
		}
		instances.Targets = append(instances.Targets, targets...)
	}

	if len(instances.Targets) == 0 {
		return nil, fmt.Errorf("no assertion service instances found for %v", domains)
	}
	return instances, nil
}

// resolveSRVTargets queries one domain's SRV records and extracts the
// target fields.
func resolveSRVTargets(domain, resolverAddr string) ([]string, error) {
	m := new(dns.Msg)
	m.Id = dns.Id()
	m.RecursionDesired = true
	m.Question = []dns.Question{{Name: dns.Fqdn(domain), Qtype: dns.TypeSRV, Qclass: dns.ClassINET}}

	c := new(dns.Client)
	in, _, err := c.Exchange(m, resolverAddr)
	if err != nil {
		return nil, err
	}

	targets := make([]string, 0, len(in.Answer))
	for _, answer := range in.Answer {
		if srv, ok := answer.(*dns.SRV); ok {
			// Ports are fixed by deployment convention; only the
			// target matters here.
			targets = append(targets, srv.Target)
		}
	}

	return targets, nil
}
