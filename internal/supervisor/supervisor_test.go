package supervisor_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/msapi-manager/internal/supervisor"
)

func TestSupervisor(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "supervisor suite")
}

var _ = Describe("Supervisor", func() {
	It("reports a spawned process's exit via onExit and Wait", func() {
		s := supervisor.New("")
		exited := make(chan int, 1)

		p, err := s.Spawn(context.Background(), "/bin/true", nil, func(pid int, _ error) {
			exited <- pid
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Pid).To(BeNumerically(">", 0))

		Eventually(exited, 2*time.Second).Should(Receive(Equal(p.Pid)))
		Expect(s.Live()).NotTo(ContainElement(p.Pid))
	})

	It("ShellUsable resolves a real interpreter and rejects a bogus one", func() {
		Expect(supervisor.New("/bin/sh").ShellUsable()).To(Succeed())
		Expect(supervisor.New("/no/such/shell").ShellUsable()).To(HaveOccurred())
	})
})
