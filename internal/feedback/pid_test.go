package feedback_test

import (
	"errors"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/liepid/internal/feedback"
	"github.com/san-kum/liepid/internal/lie"
)

// constant returns a trajectory holding g with the given feedforward terms.
func constant[T any, G any](g G, v, a lie.Tangent) feedback.Trajectory[T, G] {
	return func(T) (G, lie.Tangent, lie.Tangent) { return g, v.Clone(), a.Clone() }
}

type recordingCurve struct {
	queried []float64
}

func (c *recordingCurve) Eval(t float64, vel, acc *lie.Tangent) lie.R2 {
	c.queried = append(c.queried, t)
	*vel = lie.Tangent{1, 2}
	*acc = lie.Tangent{3, 4}
	return lie.R2{t, -t}
}

var _ = Describe("PID", func() {
	const tol = 1e-12

	Describe("construction", func() {
		It("starts as a unit PD controller tracking the identity", func() {
			pid := feedback.New[feedback.Seconds, lie.SE2](feedback.DefaultParams())

			kp, kd, ki := pid.Gains()
			Expect(kp).To(Equal(lie.Tangent{1, 1, 1}))
			Expect(kd).To(Equal(lie.Tangent{1, 1, 1}))
			Expect(ki).To(Equal(lie.Tangent{0, 0, 0}))
			Expect(pid.Integral()).To(Equal(lie.Tangent{0, 0, 0}))
			Expect(math.IsInf(pid.Params().WindupLimit, 1)).To(BeTrue())

			_, ok := pid.LastTime()
			Expect(ok).To(BeFalse())

			g, v, a := pid.Reference(42)
			Expect(g).To(Equal(lie.SE2{}))
			Expect(v).To(Equal(lie.Tangent{0, 0, 0}))
			Expect(a).To(Equal(lie.Tangent{0, 0, 0}))
		})

		It("drives toward the identity by default", func() {
			pid := feedback.New[feedback.Seconds, lie.R2](feedback.DefaultParams())
			u := pid.Eval(0, lie.R2{1, -2}, lie.Tangent{0.5, 0})
			Expect(u.Equal(lie.Tangent{-1.5, 2}, tol)).To(BeTrue())
		})
	})

	Describe("gain configuration", func() {
		var pid *feedback.PID[feedback.Seconds, lie.R3]

		BeforeEach(func() {
			pid = feedback.New[feedback.Seconds, lie.R3](feedback.DefaultParams())
		})

		It("broadcasts scalar gains", func() {
			pid.SetKp(2)
			pid.SetKd(3)
			pid.SetKi(4)
			kp, kd, ki := pid.Gains()
			Expect(kp).To(Equal(lie.Tangent{2, 2, 2}))
			Expect(kd).To(Equal(lie.Tangent{3, 3, 3}))
			Expect(ki).To(Equal(lie.Tangent{4, 4, 4}))
		})

		It("assigns per-component gains", func() {
			pid.SetKpVec(lie.Tangent{1, 2, 3})
			pid.SetKdVec(lie.Tangent{4, 5, 6})
			pid.SetKiVec(lie.Tangent{7, 8, 9})
			kp, kd, ki := pid.Gains()
			Expect(kp).To(Equal(lie.Tangent{1, 2, 3}))
			Expect(kd).To(Equal(lie.Tangent{4, 5, 6}))
			Expect(ki).To(Equal(lie.Tangent{7, 8, 9}))
		})

		It("does not alias caller gain vectors", func() {
			k := lie.Tangent{1, 2, 3}
			pid.SetKpVec(k)
			k[0] = 100
			kp, _, _ := pid.Gains()
			Expect(kp[0]).To(Equal(1.0))
		})

		It("panics on a gain vector of the wrong dimension", func() {
			Expect(func() { pid.SetKiVec(lie.Tangent{1, 2}) }).To(PanicWith(
				Satisfy(func(err error) bool { return errors.Is(err, lie.ErrDimensionMismatch) }),
			))
		})

		It("tunes gains by name", func() {
			Expect(pid.SetParam("kd", 0.5)).To(Succeed())
			Expect(pid.GetParams()).To(HaveKeyWithValue("kd", 0.5))
			Expect(pid.SetParam("target", 1)).To(MatchError(feedback.ErrUnknownParam))
		})

		It("reads and replaces whole gain vectors by name", func() {
			pid.SetKpVec(lie.Tangent{4, 1, 9})
			kp, err := pid.Gain("kp")
			Expect(err).NotTo(HaveOccurred())
			Expect(kp).To(Equal(lie.Tangent{4, 1, 9}))

			kp[0] = 100
			Expect(pid.Gain("kp")).To(Equal(lie.Tangent{4, 1, 9}))

			Expect(pid.SetGain("ki", lie.Tangent{0.5, 0, 1})).To(Succeed())
			_, _, ki := pid.Gains()
			Expect(ki).To(Equal(lie.Tangent{0.5, 0, 1}))

			Expect(pid.SetGain("kd", lie.Tangent{1})).To(MatchError(lie.ErrDimensionMismatch))
			_, err = pid.Gain("target")
			Expect(err).To(MatchError(feedback.ErrUnknownParam))
		})
	})

	Describe("integral action", func() {
		var pid *feedback.PID[feedback.Seconds, lie.R1]

		BeforeEach(func() {
			pid = feedback.New[feedback.Seconds, lie.R1](feedback.DefaultParams())
			pid.SetKp(0)
			pid.SetKd(0)
			pid.SetKi(1)
			pid.SetXDes(constant[feedback.Seconds](lie.R1{3}, lie.Tangent{0}, lie.Tangent{0}))
		})

		It("does not integrate on the first call", func() {
			pid.Eval(100, lie.R1{0}, lie.Tangent{0})
			Expect(pid.Integral()).To(Equal(lie.Tangent{0}))

			last, ok := pid.LastTime()
			Expect(ok).To(BeTrue())
			Expect(last).To(Equal(feedback.Seconds(100)))
		})

		It("accumulates linearly for a constant error", func() {
			const dt = 0.25
			for i := 0; i <= 8; i++ {
				pid.Eval(feedback.Seconds(float64(i)*dt), lie.R1{0}, lie.Tangent{0})
			}
			Expect(pid.Integral()[0]).To(BeNumerically("~", 8*dt*3, 1e-9))
		})

		It("uses the group difference, not a flat one", func() {
			so2 := feedback.New[feedback.Seconds, lie.SO2](feedback.DefaultParams())
			so2.SetKp(0)
			so2.SetKd(0)
			so2.SetKi(1)
			so2.SetXDes(constant[feedback.Seconds](lie.NewSO2(math.Pi-0.1), lie.Tangent{0}, lie.Tangent{0}))

			g := lie.NewSO2(-math.Pi + 0.1)
			so2.Eval(0, g, lie.Tangent{0})
			so2.Eval(1, g, lie.Tangent{0})
			Expect(so2.Integral()[0]).To(BeNumerically("~", -0.2, 1e-9))
		})

		It("skips integration for duplicate timestamps", func() {
			pid.Eval(1, lie.R1{0}, lie.Tangent{0})
			pid.Eval(2, lie.R1{0}, lie.Tangent{0})
			pid.Eval(2, lie.R1{0}, lie.Tangent{0})
			Expect(pid.Integral()[0]).To(BeNumerically("~", 3, 1e-9))
		})

		// Out-of-order calls skip integration but still move the last time
		// backwards, so the next in-order call integrates from the earlier time.
		It("advances the last time on out-of-order timestamps", func() {
			pid.Eval(5, lie.R1{0}, lie.Tangent{0})
			pid.Eval(2, lie.R1{0}, lie.Tangent{0})
			Expect(pid.Integral()).To(Equal(lie.Tangent{0}))

			last, _ := pid.LastTime()
			Expect(last).To(Equal(feedback.Seconds(2)))

			pid.Eval(6, lie.R1{0}, lie.Tangent{0})
			Expect(pid.Integral()[0]).To(BeNumerically("~", 4*3, 1e-9))
		})

		It("keeps integrating after a reset", func() {
			pid.Eval(0, lie.R1{0}, lie.Tangent{0})
			pid.Eval(1, lie.R1{0}, lie.Tangent{0})
			Expect(pid.Integral()[0]).To(BeNumerically("~", 3, 1e-9))

			pid.ResetIntegral()
			Expect(pid.Integral()).To(Equal(lie.Tangent{0}))
			_, ok := pid.LastTime()
			Expect(ok).To(BeTrue())

			pid.Eval(1.5, lie.R1{0}, lie.Tangent{0})
			Expect(pid.Integral()[0]).To(BeNumerically("~", 1.5, 1e-9))
		})

		It("keeps the integral when gains or trajectory change", func() {
			pid.Eval(0, lie.R1{0}, lie.Tangent{0})
			pid.Eval(1, lie.R1{0}, lie.Tangent{0})
			pid.SetKi(7)
			pid.SetXDes(constant[feedback.Seconds](lie.R1{0}, lie.Tangent{0}, lie.Tangent{0}))
			Expect(pid.Integral()[0]).To(BeNumerically("~", 3, 1e-9))
		})
	})

	Describe("anti-windup", func() {
		It("saturates at the windup limit", func() {
			pid := feedback.New[feedback.Seconds, lie.R1](feedback.Params{WindupLimit: 5})
			pid.SetKp(0)
			pid.SetKd(0)
			pid.SetKiVec(lie.Tangent{2})
			pid.SetXDes(constant[feedback.Seconds](lie.R1{10}, lie.Tangent{0}, lie.Tangent{0}))

			u := pid.Eval(0, lie.R1{0}, lie.Tangent{0})
			Expect(pid.Integral()).To(Equal(lie.Tangent{0}))
			Expect(u).To(Equal(lie.Tangent{0}))

			u = pid.Eval(1, lie.R1{0}, lie.Tangent{0})
			Expect(pid.Integral()).To(Equal(lie.Tangent{5}))
			Expect(u).To(Equal(lie.Tangent{10}))

			u = pid.Eval(2, lie.R1{0}, lie.Tangent{0})
			Expect(pid.Integral()).To(Equal(lie.Tangent{5}))
			Expect(u).To(Equal(lie.Tangent{10}))
		})

		It("clamps each component in both signs", func() {
			pid := feedback.New[feedback.Seconds, lie.R2](feedback.Params{WindupLimit: 1})
			pid.SetXDes(constant[feedback.Seconds](lie.R2{4, -4}, lie.Tangent{0, 0}, lie.Tangent{0, 0}))

			pid.Eval(0, lie.R2{}, lie.Tangent{0, 0})
			pid.Eval(3, lie.R2{}, lie.Tangent{0, 0})
			Expect(pid.Integral()).To(Equal(lie.Tangent{1, -1}))
		})
	})

	Describe("command", func() {
		It("is pure feedforward with zero gains", func() {
			pid := feedback.New[feedback.Seconds, lie.SE2](feedback.DefaultParams())
			pid.SetKp(0)
			pid.SetKd(0)
			pid.SetKi(0)
			a := lie.Tangent{0.1, -0.2, 0.3}
			pid.SetXDes(constant[feedback.Seconds](lie.NewSE2(3, 1, 2), lie.Tangent{1, 1, 1}, a))

			for i, g := range []lie.SE2{lie.NewSE2(0, 0, 0), lie.NewSE2(-5, 2, 1)} {
				u := pid.Eval(feedback.Seconds(i), g, lie.Tangent{9, 9, 9})
				Expect(u).To(Equal(a))
			}
		})

		It("is the group error under pure proportional control", func() {
			pid := feedback.New[feedback.Seconds, lie.SE2](feedback.DefaultParams())
			pid.SetKd(0)
			gDes := lie.NewSE2(1, 2, 0.5)
			vDes := lie.Tangent{0.3, 0, -0.1}
			pid.SetXDes(constant[feedback.Seconds](gDes, vDes, lie.Tangent{0, 0, 0}))

			g := lie.NewSE2(-1, 0.5, -0.4)
			u := pid.Eval(0, g, vDes)
			Expect(u.Equal(gDes.Minus(g), tol)).To(BeTrue())
		})

		It("exposes the group error of the last evaluation", func() {
			pid := feedback.New[feedback.Seconds, lie.SO2](feedback.DefaultParams())
			Expect(pid.Error()).To(Equal(lie.Tangent{0}))

			pid.SetXDes(constant[feedback.Seconds](lie.NewSO2(0.5), lie.Tangent{0}, lie.Tangent{0}))
			pid.Eval(0, lie.NewSO2(0.2), lie.Tangent{0})
			Expect(pid.Error()[0]).To(BeNumerically("~", 0.3, tol))
		})

		It("combines all terms", func() {
			pid := feedback.New[feedback.Seconds, lie.R1](feedback.DefaultParams())
			pid.SetKp(2)
			pid.SetKd(3)
			pid.SetKi(4)
			pid.SetXDes(constant[feedback.Seconds](lie.R1{1}, lie.Tangent{0.5}, lie.Tangent{0.25}))

			pid.Eval(0, lie.R1{0}, lie.Tangent{0})
			u := pid.Eval(0.5, lie.R1{0}, lie.Tangent{0})
			// 0.25 + 2*1 + 3*0.5 + 4*0.5
			Expect(u[0]).To(BeNumerically("~", 5.75, 1e-9))
		})
	})

	Describe("curve references", func() {
		It("queries the curve at the elapsed time", func() {
			pid := feedback.New[feedback.Seconds, lie.R2](feedback.DefaultParams())
			c := &recordingCurve{}
			pid.SetXDesCurve(10, c)

			g, v, a := pid.Reference(12.5)
			Expect(c.queried).To(Equal([]float64{2.5}))
			Expect(g).To(Equal(lie.R2{2.5, -2.5}))
			Expect(v).To(Equal(lie.Tangent{1, 2}))
			Expect(a).To(Equal(lie.Tangent{3, 4}))
		})

		It("works with wall-clock time", func() {
			pid := feedback.New[time.Time, lie.R2](feedback.DefaultParams())
			t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			c := &recordingCurve{}
			pid.SetXDesCurve(t0, c)
			pid.SetKi(1)

			pid.Eval(t0, lie.R2{}, lie.Tangent{0, 0})
			pid.Eval(t0.Add(500*time.Millisecond), lie.R2{}, lie.Tangent{0, 0})

			Expect(c.queried).To(Equal([]float64{0, 0.5}))
			Expect(pid.Integral().Equal(lie.Tangent{0.25, -0.25}, tol)).To(BeTrue())
		})
	})
})

var _ = Describe("Seconds", func() {
	It("orders and subtracts instants", func() {
		Expect(feedback.Seconds(2).After(1)).To(BeTrue())
		Expect(feedback.Seconds(1).After(1)).To(BeFalse())
		Expect(feedback.Seconds(1.5).Sub(1)).To(Equal(500 * time.Millisecond))
	})

	It("saturates gaps beyond the duration range", func() {
		Expect(feedback.Seconds(1e10).Sub(0)).To(Equal(time.Duration(math.MaxInt64)))
		Expect(feedback.Seconds(0).Sub(1e10)).To(Equal(time.Duration(math.MinInt64)))
	})

	It("keeps integrating forward across a huge gap", func() {
		pid := feedback.New[feedback.Seconds, lie.R1](feedback.DefaultParams())
		pid.SetKi(1)
		pid.SetXDes(func(feedback.Seconds) (lie.R1, lie.Tangent, lie.Tangent) {
			return lie.R1{1}, lie.Zeros(1), lie.Zeros(1)
		})

		pid.Eval(0, lie.R1{}, lie.Zeros(1))
		pid.Eval(1e10, lie.R1{}, lie.Zeros(1))

		Expect(pid.Integral()[0]).To(BeNumerically(">", 0))
	})
})
