package export

import (
	"bytes"
	"math"
	"strings"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/odekit/internal/ode"
	"github.com/san-kum/odekit/internal/storage"
)

func circle(n int) storage.Trajectory {
	traj := storage.Trajectory{}
	for i := 0; i < n; i++ {
		t := 2 * math.Pi * float64(i) / float64(n-1)
		traj.Times = append(traj.Times, t)
		traj.States = append(traj.States, []float64{math.Cos(t), math.Sin(t)})
	}
	return traj
}

func TestTimeSeriesSVG(t *testing.T) {
	g := NewWithT(t)
	var buf bytes.Buffer
	g.Expect(TimeSeriesSVG(&buf, circle(50), 400, 200)).To(Succeed())

	out := buf.String()
	g.Expect(out).To(HavePrefix("<?xml"))
	g.Expect(out).To(ContainSubstring(`width="400" height="200"`))
	g.Expect(strings.Count(out, "<path")).To(Equal(2))
	g.Expect(strings.TrimSpace(out)).To(HaveSuffix("</svg>"))
}

func TestPhaseSVG(t *testing.T) {
	g := NewWithT(t)
	traj := circle(20)
	traj.States[5][1] = math.NaN()

	var buf bytes.Buffer
	g.Expect(PhaseSVG(&buf, traj, 0, 1, 300, 300)).To(Succeed())
	out := buf.String()
	g.Expect(strings.Count(out, "<path")).To(Equal(1))
	g.Expect(out).NotTo(ContainSubstring("NaN"))
	// the gap restarts the path
	g.Expect(strings.Count(out, "M")).To(Equal(2))
}

func TestSVG_Errors(t *testing.T) {
	g := NewWithT(t)
	var buf bytes.Buffer
	g.Expect(TimeSeriesSVG(&buf, storage.Trajectory{}, 10, 10)).NotTo(Succeed())
	g.Expect(PhaseSVG(&buf, circle(10), 0, 2, 10, 10)).To(MatchError(ode.ErrDimensionMismatch))
}
