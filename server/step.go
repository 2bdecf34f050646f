package main

// Step advances the scene by one frame. now is the frame timestamp in ms.
func (sc *Scene) Step(now float64) {
	sc.Frame++
	vp := sc.Viewport

	if !sc.Potato {
		for _, s := range sc.Stars {
			s.Twinkle(now)
		}
		for _, p := range sc.Planets {
			p.OrbitAngle += p.OrbitSpeed
		}
	}

	for _, m := range sc.Meteors {
		m.Update(vp, sc.Potato, sc.rng)
	}

	for _, s := range sc.Ships {
		if s.IsChasing() && s.HasTarget {
			target := sc.ship(s.TargetID)
			if target != nil {
				dist := s.Chase(target)
				sc.maybeFire(s, dist, now)
			}
		} else if chaser := sc.chaserOf(s.ID); chaser != nil {
			s.Evade(chaser)
		}
		s.Move(vp)
	}

	sc.updateLasers()
}

// maybeFire spawns a laser when the cooldown has passed, the target is in
// range and the random draw clears the threshold. Operands are evaluated in
// that order so the random source is only consumed for eligible ships.
func (sc *Scene) maybeFire(s *Spaceship, dist, now float64) {
	if now-sc.lastShot <= ShipShotCooldown || dist >= ShipShootRange {
		return
	}
	if sc.rng.Float64() <= ShipShotThreshold {
		return
	}
	sc.nextLaserID++
	sc.Lasers = append(sc.Lasers, NewLaser(sc.nextLaserID, s, now))
	sc.lastShot = now
	sc.emit(CueLaser)
}

// updateLasers moves lasers, drops the ones off screen and teleports every
// evading ship a surviving laser touches. The laser itself keeps flying.
func (sc *Scene) updateLasers() {
	kept := sc.Lasers[:0]
	for _, l := range sc.Lasers {
		if !l.Update(sc.Viewport) {
			continue
		}
		for _, s := range sc.Ships {
			if s.IsChasing() {
				continue
			}
			if l.Hits(s) {
				sc.emit(CueExplosion)
				s.Teleport(sc.Viewport, sc.rng)
			}
		}
		kept = append(kept, l)
	}
	for i := len(kept); i < len(sc.Lasers); i++ {
		sc.Lasers[i] = nil
	}
	sc.Lasers = kept
}
