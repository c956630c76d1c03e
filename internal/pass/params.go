package pass

import (
	"fmt"
	"math"

	"github.com/gyaneshwarpardhi/qsched/internal/config"
	"github.com/gyaneshwarpardhi/qsched/internal/errs"
	"github.com/gyaneshwarpardhi/qsched/internal/sched"
)

// Scheduler parameter names, shared by the schedule pass and per-job
// option overrides.
const (
	ParamResourceConstraints    = "resource_constraints"
	ParamTarget                 = "scheduler_target"
	ParamHeuristic              = "scheduler_heuristic"
	ParamCommuteMultiQubit      = "commute_multi_qubit"
	ParamCommuteSingleQubit     = "commute_single_qubit"
	ParamMaxResourceBlockCycles = "max_resource_block_cycles"
	ParamWriteDotGraphs         = "write_dot_graphs"
	ParamDotPrefix              = "dot_prefix"
)

// ApplySchedulerParams returns base with params applied on top. Unknown
// parameters and values of the wrong type are user errors.
func ApplySchedulerParams(base config.SchedulerConf, params map[string]any) (config.SchedulerConf, error) {
	out := base
	for key, v := range params {
		var err error
		switch key {
		case ParamResourceConstraints:
			var b bool
			if b, err = asBool(v); err == nil {
				out.ResourceConstraints = &b
			}
		case ParamTarget:
			var s string
			if s, err = asString(v); err == nil {
				_, err = sched.ParseTarget(s)
				out.Target = s
			}
		case ParamHeuristic:
			var s string
			if s, err = asString(v); err == nil {
				_, err = sched.ParseHeuristic(s)
				out.Heuristic = s
			}
		case ParamCommuteMultiQubit:
			out.CommuteMultiQubit, err = asBool(v)
		case ParamCommuteSingleQubit:
			out.CommuteSingleQubit, err = asBool(v)
		case ParamMaxResourceBlockCycles:
			var n int
			if n, err = asInt(v); err == nil {
				if n < 0 {
					err = fmt.Errorf("must not be negative, got %d", n)
				}
				out.MaxResourceBlockCycles = &n
			}
		case ParamWriteDotGraphs:
			out.WriteDotGraphs, err = asBool(v)
		case ParamDotPrefix:
			out.DotPrefix, err = asString(v)
		default:
			err = fmt.Errorf("unknown parameter")
		}
		if err != nil {
			return base, errs.Userf("parameter %s: %v", key, err)
		}
	}
	return out, nil
}

// SchedulerOptions converts scheduler settings to scheduler options. Unset
// fields take the scheduler defaults.
func SchedulerOptions(conf config.SchedulerConf) (sched.Options, error) {
	opts := sched.DefaultOptions()
	if conf.ResourceConstraints != nil {
		opts.ResourceConstraints = *conf.ResourceConstraints
	}
	if conf.Target != "" {
		t, err := sched.ParseTarget(conf.Target)
		if err != nil {
			return opts, errs.Userf("%v", err)
		}
		opts.Target = t
	}
	if conf.Heuristic != "" {
		h, err := sched.ParseHeuristic(conf.Heuristic)
		if err != nil {
			return opts, errs.Userf("%v", err)
		}
		opts.Heuristic = h
	}
	opts.CommuteMultiQubit = conf.CommuteMultiQubit
	opts.CommuteSingleQubit = conf.CommuteSingleQubit
	if conf.MaxResourceBlockCycles != nil {
		opts.MaxResourceBlockCycles = *conf.MaxResourceBlockCycles
	}
	opts.WriteDotGraphs = conf.WriteDotGraphs
	if conf.DotPrefix != "" {
		opts.DotPrefix = conf.DotPrefix
	}
	return opts, nil
}

func asBool(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("expected a boolean, got %T", v)
	}
	return b, nil
}

func asString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected a string, got %T", v)
	}
	return s, nil
}

// asInt accepts the integer types YAML decoding produces and integral
// floats from JSON.
func asInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		if n > math.MaxInt {
			return 0, fmt.Errorf("value %d out of range", n)
		}
		return int(n), nil
	case float64:
		if n != math.Trunc(n) || math.Abs(n) > math.MaxInt32 {
			return 0, fmt.Errorf("expected an integer, got %v", n)
		}
		return int(n), nil
	}
	return 0, fmt.Errorf("expected an integer, got %T", v)
}
