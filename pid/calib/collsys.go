package calib

import (
	"fmt"
	"strings"
)

// CollisionSystem identifies the colliding beam configuration of a dataset.
// It selects which event-time sources are combined downstream.
type CollisionSystem int

const (
	// CollSysUnset means not yet resolved (autodetect from beam info).
	CollSysUnset CollisionSystem = -1
	CollSysPP    CollisionSystem = 0
	CollSysPbPb  CollisionSystem = 1
	CollSysXeXe  CollisionSystem = 2
	CollSysPPb   CollisionSystem = 3
)

func (s CollisionSystem) String() string {
	switch s {
	case CollSysPP:
		return "pp"
	case CollSysPbPb:
		return "PbPb"
	case CollSysXeXe:
		return "XeXe"
	case CollSysPPb:
		return "pPb"
	case CollSysUnset:
		return "unset"
	}
	return "unknown"
}

// ParseCollisionSystem resolves a collision system tag. The empty string maps
// to CollSysUnset, requesting beam-info autodetection.
func ParseCollisionSystem(name string) (CollisionSystem, error) {
	switch strings.ToLower(name) {
	case "":
		return CollSysUnset, nil
	case "pp":
		return CollSysPP, nil
	case "pbpb":
		return CollSysPbPb, nil
	case "xexe":
		return CollSysXeXe, nil
	case "ppb":
		return CollSysPPb, nil
	}
	return CollSysUnset, fmt.Errorf("unknown collision system %q (valid: pp, PbPb, XeXe, pPb)", name)
}

// BeamInfo is the beam configuration object fetched from the store
// (atomic number Z and mass number A for each beam).
type BeamInfo struct {
	ZA int `yaml:"z_a"`
	AA int `yaml:"a_a"`
	ZB int `yaml:"z_b"`
	AB int `yaml:"a_b"`
}

const (
	zProton = 1
	zLead   = 82
	zXenon  = 54
)

// ClassifyCollisionSystem maps a beam configuration onto a CollisionSystem.
// Unrecognized configurations return CollSysUnset; the caller treats an
// unresolved system as a configuration error when a mode has to be picked.
func ClassifyCollisionSystem(b BeamInfo) CollisionSystem {
	switch {
	case b.ZA == zProton && b.ZB == zProton:
		return CollSysPP
	case b.ZA == zLead && b.ZB == zLead:
		return CollSysPbPb
	case b.ZA == zXenon && b.ZB == zXenon:
		return CollSysXeXe
	case (b.ZA == zProton && b.ZB == zLead) || (b.ZA == zLead && b.ZB == zProton):
		return CollSysPPb
	}
	return CollSysUnset
}
