package rmw

import (
	"github.com/c360/ddsbridge/errors"
	"github.com/c360/ddsbridge/typesupport"
)

// endpointTuple is one (topic, type support) registration with its
// refcount.
type endpointTuple struct {
	topic    string
	ts       *typesupport.TypeSupport
	refcount int
}

// endpointSet tracks a node's registrations. Matching is a linear scan
// on type-support pointer equality plus topic string equality; the sets
// stay small enough that anything fancier would not pay.
type endpointSet struct {
	tuples []endpointTuple
}

// add registers a (topic, ts) pair, bumping the refcount on a match
func (s *endpointSet) add(topic string, ts *typesupport.TypeSupport) {
	for i := range s.tuples {
		if s.tuples[i].ts == ts && s.tuples[i].topic == topic {
			s.tuples[i].refcount++
			return
		}
	}
	s.tuples = append(s.tuples, endpointTuple{topic: topic, ts: ts, refcount: 1})
}

// remove decrements a registration, swap-removing the tuple at zero
func (s *endpointSet) remove(topic string, ts *typesupport.TypeSupport) error {
	for i := range s.tuples {
		if s.tuples[i].ts == ts && s.tuples[i].topic == topic {
			s.tuples[i].refcount--
			if s.tuples[i].refcount == 0 {
				last := len(s.tuples) - 1
				s.tuples[i] = s.tuples[last]
				s.tuples = s.tuples[:last]
			}
			return nil
		}
	}
	return errors.WrapInvalid(errors.ErrNotRegistered, "endpointSet", "remove", "find registration")
}

func (s *endpointSet) len() int {
	return len(s.tuples)
}
