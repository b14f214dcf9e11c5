package engine

import (
	"github.com/ByteArena/box2d"
	"github.com/go-gl/mathgl/mgl64"
)

// listener adapts box2d's contact listener to a ContactHandler. One contact
// wrapper is reused for every callback.
type listener struct {
	handler ContactHandler
	cur     contact
}

func (l *listener) BeginContact(c box2d.B2ContactInterface) {
	if l.handler == nil {
		return
	}
	l.cur.c = c
	l.handler.BeginContact(&l.cur)
	l.cur.c = nil
}

func (l *listener) EndContact(c box2d.B2ContactInterface) {
	if l.handler == nil {
		return
	}
	l.cur.c = c
	l.handler.EndContact(&l.cur)
	l.cur.c = nil
}

func (l *listener) PreSolve(c box2d.B2ContactInterface, _ box2d.B2Manifold) {
	if l.handler == nil {
		return
	}
	l.cur.c = c
	l.handler.PreSolve(&l.cur)
	l.cur.c = nil
}

func (l *listener) PostSolve(c box2d.B2ContactInterface, impulse *box2d.B2ContactImpulse) {
	if l.handler == nil || impulse == nil {
		return
	}
	l.cur.c = c
	n := impulse.Count
	if n > len(impulse.NormalImpulses) {
		n = len(impulse.NormalImpulses)
	}
	l.handler.PostSolve(&l.cur, impulse.NormalImpulses[:n])
	l.cur.c = nil
}

type contact struct {
	c box2d.B2ContactInterface
}

func (c *contact) Bodies() (BodyID, BodyID) {
	if c.c == nil {
		return NoBody, NoBody
	}
	return fixtureBody(c.c.GetFixtureA()), fixtureBody(c.c.GetFixtureB())
}

func (c *contact) SetRestitution(e float64) {
	if c.c != nil {
		c.c.SetRestitution(e)
	}
}

func (c *contact) WorldPoint() (mgl64.Vec2, bool) {
	if c.c == nil {
		return mgl64.Vec2{}, false
	}
	m := c.c.GetManifold()
	if m == nil || m.PointCount == 0 {
		return mgl64.Vec2{}, false
	}
	wm := box2d.MakeB2WorldManifold()
	c.c.GetWorldManifold(&wm)
	return fromB2(wm.Points[0]), true
}

func fixtureBody(f *box2d.B2Fixture) BodyID {
	if f == nil {
		return NoBody
	}
	body := f.GetBody()
	if body == nil {
		return NoBody
	}
	if id, ok := body.GetUserData().(BodyID); ok {
		return id
	}
	return NoBody
}
