package sectionflow

import "fmt"

// Business rules for the built-in section kinds. Each returns advisory findings only;
// incomplete field data is an expected steady state while a hole is being drilled.

func RigSetupRules() []BusinessRule {
	return []BusinessRule{
		func(e Entity) []Message {
			rig, ok := e.(*RigSetup)
			if !ok {
				return nil
			}

			var msgs []Message
			if rig.RigName == "" {
				msgs = append(msgs, Message{Field: "rigName", Text: "rig name is needed before sign-off"})
			}
			if rig.Contractor == "" {
				msgs = append(msgs, Message{Field: "contractor", Text: "drilling contractor is needed before sign-off"})
			}
			if rig.MastAngle != nil && (*rig.MastAngle < -90 || *rig.MastAngle > 90) {
				msgs = append(msgs, Message{Field: "mastAngle", Text: outOfRange(*rig.MastAngle, -90, 90)})
			}

			return msgs
		},
	}
}

func SurveyRules() []BusinessRule {
	return []BusinessRule{
		func(e Entity) []Message {
			s, ok := e.(*Survey)
			if !ok {
				return nil
			}

			var msgs []Message
			if s.DepthM != nil && *s.DepthM < 0 {
				msgs = append(msgs, Message{Field: "depthM", Text: "depth cannot be negative"})
			}
			if s.AzimuthDeg != nil && (*s.AzimuthDeg < 0 || *s.AzimuthDeg > 360) {
				msgs = append(msgs, Message{Field: "azimuthDeg", Text: outOfRange(*s.AzimuthDeg, 0, 360)})
			}
			if s.DipDeg != nil && (*s.DipDeg < -90 || *s.DipDeg > 90) {
				msgs = append(msgs, Message{Field: "dipDeg", Text: outOfRange(*s.DipDeg, -90, 90)})
			}
			if s.Method == "" {
				msgs = append(msgs, Message{Field: "method", Text: "survey method is needed before sign-off"})
			}

			return msgs
		},
	}
}

func GeologyRules() []BusinessRule {
	return []BusinessRule{
		func(e Entity) []Message {
			g, ok := e.(*GeologyInterval)
			if !ok {
				return nil
			}

			var msgs []Message
			msgs = append(msgs, intervalMessages(g.DepthFromM, g.DepthToM)...)
			if g.LithologyCode == "" {
				msgs = append(msgs, Message{Field: "lithologyCode", Text: "lithology code is needed before sign-off"})
			}

			return msgs
		},
	}
}

func SampleRules() []BusinessRule {
	return []BusinessRule{
		func(e Entity) []Message {
			s, ok := e.(*Sample)
			if !ok {
				return nil
			}

			var msgs []Message
			msgs = append(msgs, intervalMessages(s.DepthFromM, s.DepthToM)...)
			if s.SampleNumber == "" && !s.Excluded {
				msgs = append(msgs, Message{Field: "sampleNumber", Text: "sample number is needed before sign-off"})
			}

			return msgs
		},
	}
}

// intervalMessages checks the ordering shared by every depth interval row.
func intervalMessages(from, to *float64) []Message {
	var msgs []Message
	if from != nil && *from < 0 {
		msgs = append(msgs, Message{Field: "depthFromM", Text: "depth cannot be negative"})
	}
	if to != nil && *to < 0 {
		msgs = append(msgs, Message{Field: "depthToM", Text: "depth cannot be negative"})
	}
	if from != nil && to != nil && *from > *to {
		msgs = append(msgs, Message{
			Field: "depthFromM",
			Text:  fmt.Sprintf("depth from (%v) must not exceed depth to (%v)", *from, *to),
		})
	}

	return msgs
}

func outOfRange(v, lo, hi float64) string {
	return fmt.Sprintf("value %v is outside the range %v to %v", v, lo, hi)
}
