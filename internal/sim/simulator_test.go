package sim_test

import (
	"context"
	"io"
	"math"

	"github.com/ausocean/utils/logging"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/liepid/internal/curve"
	"github.com/san-kum/liepid/internal/feedback"
	"github.com/san-kum/liepid/internal/lie"
	"github.com/san-kum/liepid/internal/sim"
)

type countingMetric struct {
	count int
}

func (c *countingMetric) Name() string       { return "count" }
func (c *countingMetric) Observe(sim.Sample) { c.count++ }
func (c *countingMetric) Value() float64     { return float64(c.count) }
func (c *countingMetric) Reset()             { c.count = 0 }

type recorder struct {
	times []float64
}

func (r *recorder) OnStep(s sim.Sample) { r.times = append(r.times, s.T) }

var _ = Describe("Simulator", func() {
	var log logging.Logger

	BeforeEach(func() {
		log = logging.New(logging.Debug, io.Discard, true)
	})

	newPD := func() *feedback.PID[feedback.Seconds, lie.R1] {
		pid := feedback.New[feedback.Seconds, lie.R1](feedback.DefaultParams())
		pid.SetKp(4)
		pid.SetKd(4)
		pid.SetXDesCurve(0, curve.NewConstant(lie.R1{1}))
		return pid
	}

	It("regulates a double integrator to a setpoint", func() {
		s := sim.New(newPD(), log)
		res, err := s.Run(context.Background(), lie.R1{0}, lie.Tangent{0}, sim.Config{Dt: 0.01, Duration: 10})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.StepsTaken).To(Equal(1000))
		Expect(res.Samples).To(HaveLen(1000))

		last := res.Samples[len(res.Samples)-1]
		Expect(last.Err.Norm()).To(BeNumerically("<", 1e-3))
		Expect(res.Samples[0].Err).To(Equal(lie.Tangent{1}))
	})

	It("tracks a moving SE2 reference", func() {
		pid := feedback.New[feedback.Seconds, lie.SE2](feedback.DefaultParams())
		pid.SetKp(9)
		pid.SetKd(6)
		pid.SetXDesCurve(0, curve.NewTwist(lie.SE2{}, lie.Tangent{1, 0, 0.5}))

		s := sim.New(pid, log)
		res, err := s.Run(context.Background(), lie.NewSE2(0.5, -0.5, 0.3), lie.Tangent{0, 0, 0}, sim.Config{Dt: 0.005, Duration: 8})
		Expect(err).NotTo(HaveOccurred())

		errs := res.ErrorNorms()
		Expect(errs[len(errs)-1]).To(BeNumerically("<", 1e-2))
		Expect(errs[len(errs)-1]).To(BeNumerically("<", errs[0]))
	})

	It("feeds metrics and observers every tick", func() {
		s := sim.New(newPD(), log)
		m := &countingMetric{}
		r := &recorder{}
		s.AddMetric(m)
		s.AddObserver(r)

		res, err := s.Run(context.Background(), lie.R1{0}, lie.Tangent{0}, sim.Config{Dt: 0.1, Duration: 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Metrics).To(HaveKeyWithValue("count", 10.0))
		Expect(r.times).To(HaveLen(10))
		Expect(r.times[3]).To(BeNumerically("~", 0.3, 1e-12))
		Expect(res.Times()).To(Equal(r.times))
	})

	DescribeTable("rejects invalid configs",
		func(cfg sim.Config) {
			s := sim.New(newPD(), log)
			_, err := s.Run(context.Background(), lie.R1{0}, lie.Tangent{0}, cfg)
			Expect(err).To(MatchError(sim.ErrInvalidConfig))
		},
		Entry("zero dt", sim.Config{Dt: 0, Duration: 1}),
		Entry("negative dt", sim.Config{Dt: -0.1, Duration: 1}),
		Entry("zero duration", sim.Config{Dt: 0.1, Duration: 0}),
		Entry("negative duration", sim.Config{Dt: 0.1, Duration: -1}),
	)

	It("rejects an initial velocity of the wrong dimension", func() {
		s := sim.New(newPD(), log)
		_, err := s.Run(context.Background(), lie.R1{0}, lie.Tangent{0, 0}, sim.DefaultConfig())
		Expect(err).To(MatchError(lie.ErrDimensionMismatch))
	})

	It("stops on a diverging state", func() {
		pid := newPD()
		pid.SetXDes(func(feedback.Seconds) (lie.R1, lie.Tangent, lie.Tangent) {
			return lie.R1{0}, lie.Tangent{0}, lie.Tangent{math.NaN()}
		})
		s := sim.New(pid, log)
		m := &countingMetric{}
		s.AddMetric(m)

		res, err := s.Run(context.Background(), lie.R1{0}, lie.Tangent{0}, sim.DefaultConfig())
		Expect(err).To(MatchError(sim.ErrUnstable))

		var simErr *sim.SimulationError
		Expect(err).To(BeAssignableToTypeOf(simErr))
		Expect(res.StepsTaken).To(Equal(1))
		Expect(res.Metrics).To(HaveKeyWithValue("count", 1.0))
	})

	It("honors cancellation", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		s := sim.New(newPD(), log)
		res, err := s.Run(ctx, lie.R1{0}, lie.Tangent{0}, sim.DefaultConfig())
		Expect(err).To(MatchError(context.Canceled))
		Expect(res.StepsTaken).To(BeZero())
	})
})

var _ = Describe("Ensemble", func() {
	It("runs every start with its own controller", func() {
		log := logging.New(logging.Debug, io.Discard, true)
		e := sim.NewEnsemble(
			func() *feedback.PID[feedback.Seconds, lie.SO2] {
				pid := feedback.New[feedback.Seconds, lie.SO2](feedback.DefaultParams())
				pid.SetKp(4)
				pid.SetKd(4)
				return pid
			},
			func() []sim.Metric { return []sim.Metric{&countingMetric{}} },
			log,
		)

		starts := []lie.SO2{lie.NewSO2(1), lie.NewSO2(-2), lie.NewSO2(3)}
		results, err := e.Run(context.Background(), starts, lie.Tangent{0}, sim.Config{Dt: 0.01, Duration: 10})
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))
		for _, res := range results {
			Expect(res.Metrics).To(HaveKeyWithValue("count", 1000.0))
			Expect(res.Samples[len(res.Samples)-1].Err.Norm()).To(BeNumerically("<", 1e-3))
		}
	})

	It("records a diverging run and finishes the others", func() {
		log := logging.New(logging.Debug, io.Discard, true)
		e := sim.NewEnsemble(
			func() *feedback.PID[feedback.Seconds, lie.R1] {
				pid := feedback.New[feedback.Seconds, lie.R1](feedback.DefaultParams())
				pid.SetKp(4)
				pid.SetKd(4)
				return pid
			},
			nil,
			log,
		)

		starts := []lie.R1{{1}, {math.NaN()}, {-1}}
		results, err := e.Run(context.Background(), starts, lie.Tangent{0}, sim.Config{Dt: 0.01, Duration: 5, ValidateState: true})
		Expect(err).To(MatchError(sim.ErrUnstable))
		Expect(results).To(HaveLen(3))

		Expect(results[1].Err).To(MatchError(sim.ErrUnstable))
		Expect(results[1].StepsTaken).To(Equal(1))
		for _, i := range []int{0, 2} {
			Expect(results[i].Err).NotTo(HaveOccurred())
			Expect(results[i].StepsTaken).To(Equal(500))
		}
	})
})
