package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/profile"

	"github.com/localphysics/localsim/collision"
	"github.com/localphysics/localsim/config"
	"github.com/localphysics/localsim/lmath"
	"github.com/localphysics/localsim/sim"
)

// A chain of spheres hangs from a world anchor above a ground plane, gets
// kicked by a radial impulse and settles. Run with -v for per-step traces
// and -profile for a CPU profile of the stepping loop.
func main() {
	var (
		cfgPath = flag.String("config", "localsim.toml", "path to the settings file")
		steps   = flag.Int("steps", 600, "number of 60 Hz steps to run")
		prof    = flag.Bool("profile", false, "write a CPU profile to the working directory")
		verbose = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Error("failed to load settings", "error", err)
		os.Exit(1)
	}

	if *prof {
		defer profile.Start(profile.ProfilePath(".")).Stop()
	}

	scene := sim.NewScene(sim.Options{
		VelocityIterations: cfg.Solver.VelocityIterations,
		PositionIterations: cfg.Solver.PositionIterations,
		WorkspaceBlocks:    cfg.Workspace.Blocks,
		Log:                log,
	})
	defer scene.Terminate()

	scene.CreateStaticActor([]sim.ShapeDef{{
		Geometry: collision.Plane{Normal: mgl32.Vec3{0, 1, 0}},
		LocalTM:  lmath.TransformIdentity(),
		Material: collision.Material{Friction: 0.8},
	}}, lmath.TransformIdentity())

	const (
		links      = 5
		linkRadius = 0.2
		spacing    = 0.5
	)
	// Solid sphere: I = 2/5 m r^2.
	const invInertia = 5 / (2 * linkRadius * linkRadius)

	var (
		prev   *sim.ActorHandle
		last   *sim.ActorHandle
		ignore []sim.IgnorePair
	)
	for i := 0; i < links; i++ {
		h := scene.CreateDynamicActor([]sim.ShapeDef{{
			Geometry: collision.Sphere{Radius: linkRadius},
			LocalTM:  lmath.TransformIdentity(),
			Material: collision.Material{Friction: 0.5, Restitution: 0.1},
		}}, lmath.TransformAt(mgl32.Vec3{float32(i+1) * spacing, 3, 0}), sim.BodyProps{
			Mass:       1,
			InvInertia: mgl32.Vec3{invInertia, invInertia, invInertia},
		})

		if prev == nil {
			scene.CreateJoint(sim.JointConfig{
				LocalAnchorA: mgl32.Vec3{0, 3, 0},
				LocalAnchorB: mgl32.Vec3{-spacing / 2, 0, 0},
			}, nil, h)
		} else {
			scene.CreateJoint(sim.JointConfig{
				LocalAnchorA: mgl32.Vec3{spacing / 2, 0, 0},
				LocalAnchorB: mgl32.Vec3{-spacing / 2, 0, 0},
			}, prev, h)
			// Neighbouring links overlap at rest; don't collide them.
			ignore = append(ignore, sim.IgnorePair{A: prev, B: h})
		}
		prev, last = h, h
	}
	scene.SetIgnoreCollisionPairTable(ignore)

	gravity := mgl32.Vec3{cfg.Gravity.X, cfg.Gravity.Y, cfg.Gravity.Z}
	const dt = float32(1.0 / 60.0)
	for i := 0; i < *steps; i++ {
		if i == 120 {
			last.AddRadialForce(mgl32.Vec3{}, 5, 10, sim.FalloffLinear, sim.AddImpulse)
		}
		scene.Simulate(dt, gravity)
	}

	tip := last.WorldTransform().Pos
	log.Info("finished", "steps", *steps, "tip_x", tip.X(), "tip_y", tip.Y(), "tip_z", tip.Z())
}
