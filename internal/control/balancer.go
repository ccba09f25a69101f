package control

import "github.com/markusressel/controlbox/internal/fp"

// DefaultBalancerAvailable is the budget shared by the clients of a Balancer.
var DefaultBalancerAvailable = fp.FromInt(100)

const maxBalancerClients = 254

type BalancedClient struct {
	ID        uint8
	Requested fp.Value
	Granted   fp.Value
}

// Balancer scales the requests of its clients down so the sum of what is
// granted never exceeds the available budget. Budget that is left over is
// split evenly over all clients.
type Balancer struct {
	Available fp.Value
	clients   []BalancedClient
}

func NewBalancer() *Balancer {
	return &Balancer{Available: DefaultBalancerAvailable}
}

// Register adds a client and returns its id, the lowest free id in 1..254.
// It returns 0 when no id is free.
func (b *Balancer) Register() uint8 {
	for id := 1; id <= maxBalancerClients; id++ {
		if b.index(uint8(id)) < 0 {
			b.clients = append(b.clients, BalancedClient{ID: uint8(id)})
			return uint8(id)
		}
	}
	return 0
}

func (b *Balancer) Unregister(id uint8) {
	if i := b.index(id); i >= 0 {
		b.clients = append(b.clients[:i], b.clients[i+1:]...)
	}
}

func (b *Balancer) index(id uint8) int {
	for i := range b.clients {
		if b.clients[i].ID == id {
			return i
		}
	}
	return -1
}

// Constrain records the request of a client and returns val limited to the
// share granted in the last Update.
func (b *Balancer) Constrain(id uint8, requested fp.Value, val fp.Value) fp.Value {
	i := b.index(id)
	if i < 0 {
		return val
	}
	b.clients[i].Requested = fp.Max(requested, fp.Zero)
	return fp.Min(val, b.clients[i].Granted)
}

func (b *Balancer) Granted(id uint8) fp.Value {
	if i := b.index(id); i >= 0 {
		return b.clients[i].Granted
	}
	return fp.Zero
}

// Update recalculates the granted shares.
func (b *Balancer) Update() {
	if len(b.clients) == 0 {
		return
	}
	total := fp.Wide(0)
	for _, c := range b.clients {
		total = total.Add(c.Requested)
	}

	available := fp.Wide(b.Available.Raw())
	leftPerClient := fp.Zero
	if total < available {
		leftPerClient = fp.FromRaw(int64(available-total) / int64(len(b.clients)))
	}

	for i := range b.clients {
		c := &b.clients[i]
		granted := c.Requested
		if total > available {
			// truncate so the sum stays within the budget
			granted = fp.FromRaw(c.Requested.Raw() * int64(available) / int64(total))
		}
		c.Granted = granted.Add(leftPerClient)
	}
}

func (b *Balancer) Clients() []BalancedClient {
	result := make([]BalancedClient, len(b.clients))
	copy(result, b.clients)
	return result
}
