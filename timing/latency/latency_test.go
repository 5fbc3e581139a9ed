package latency_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gbasim/timing/latency"
)

var _ = Describe("Table", func() {
	var table *latency.Table

	BeforeEach(func() {
		table = latency.NewTable()
	})

	Describe("default costs", func() {
		DescribeTable("fixed areas",
			func(addr uint32, w latency.Width, seq, nonSeq uint32) {
				Expect(table.Seq(addr, w)).To(Equal(seq))
				Expect(table.NonSeq(addr, w)).To(Equal(nonSeq))
			},
			Entry("BIOS word", uint32(0x00000000), latency.Width32, uint32(1), uint32(1)),
			Entry("EWRAM halfword", uint32(0x02000000), latency.Width16, uint32(3), uint32(3)),
			Entry("EWRAM word", uint32(0x02000000), latency.Width32, uint32(6), uint32(6)),
			Entry("IWRAM word", uint32(0x03000000), latency.Width32, uint32(1), uint32(1)),
			Entry("IO byte", uint32(0x04000000), latency.Width8, uint32(1), uint32(1)),
			Entry("palette word", uint32(0x05000000), latency.Width32, uint32(2), uint32(2)),
			Entry("VRAM word", uint32(0x06000000), latency.Width32, uint32(1), uint32(1)),
			Entry("OAM word", uint32(0x07000000), latency.Width32, uint32(1), uint32(1)),
			Entry("unmapped", uint32(0xF0000000), latency.Width32, uint32(1), uint32(1)),
		)

		DescribeTable("wait state windows",
			func(addr uint32, seq, nonSeq [3]uint32) {
				for w := latency.Width8; w <= latency.Width32; w++ {
					Expect(table.Seq(addr, w)).To(Equal(seq[w]))
					Expect(table.NonSeq(addr, w)).To(Equal(nonSeq[w]))
				}
			},
			Entry("WS0", uint32(0x08000000), [3]uint32{2, 2, 2}, [3]uint32{4, 4, 6}),
			Entry("WS0 upper", uint32(0x09000000), [3]uint32{2, 2, 2}, [3]uint32{4, 4, 6}),
			Entry("WS1", uint32(0x0A000000), [3]uint32{5, 5, 8}, [3]uint32{5, 5, 10}),
			Entry("WS2", uint32(0x0C000000), [3]uint32{9, 9, 16}, [3]uint32{9, 9, 18}),
			Entry("SRAM", uint32(0x0E000000), [3]uint32{9, 9, 9}, [3]uint32{9, 9, 9}),
		)

		It("should report the boot WAITCNT", func() {
			Expect(table.WaitControl()).To(Equal(uint16(latency.DefaultWaitControl)))
		})
	})

	Describe("SetupWaitstates", func() {
		It("should derive the slowest windows from zero", func() {
			table.SetupWaitstates(0)

			ws0 := table.Area(latency.AreaWS0)
			Expect(ws0.Seq).To(Equal([3]uint32{3, 3, 4}))
			Expect(ws0.NonSeq).To(Equal([3]uint32{5, 5, 8}))
			Expect(table.Area(latency.AreaSRAM).Seq[0]).To(Equal(uint32(5)))
			Expect(table.WaitControl()).To(BeZero())
		})

		It("should honour the fast sequential bits", func() {
			table.SetupWaitstates(1<<4 | 1<<7 | 1<<10)

			Expect(table.Area(latency.AreaWS0).Seq[1]).To(Equal(uint32(2)))
			Expect(table.Area(latency.AreaWS1).Seq[1]).To(Equal(uint32(2)))
			Expect(table.Area(latency.AreaWS2).Seq[1]).To(Equal(uint32(2)))
		})

		It("should select the first access wait states", func() {
			table.SetupWaitstates(3 << 2)

			Expect(table.Area(latency.AreaWS0).NonSeq[0]).To(Equal(uint32(9)))
			Expect(table.Area(latency.AreaWS0 + 1).NonSeq[0]).To(Equal(uint32(9)))
		})

		It("should leave the fixed areas alone", func() {
			before := table.Area(latency.AreaIWRAM)
			table.SetupWaitstates(0)

			Expect(table.Area(latency.AreaIWRAM)).To(Equal(before))
		})
	})

	It("should round-trip the whole table", func() {
		costs := table.Costs()
		table.SetupWaitstates(0)

		table.SetCosts(costs, latency.DefaultWaitControl)
		Expect(table.Area(latency.AreaWS0).NonSeq[2]).To(Equal(uint32(6)))
		Expect(table.WaitControl()).To(Equal(uint16(latency.DefaultWaitControl)))
	})

	It("should reset to the configured WAITCNT", func() {
		table.SetupWaitstates(0)
		table.Reset()

		Expect(table.Seq(0x08000000, latency.Width16)).To(Equal(uint32(2)))
	})

	It("should use a custom configuration", func() {
		config := latency.DefaultTimingConfig()
		config.EWRAMWaitStates = 0
		config.UnmappedCost = 3
		table = latency.NewTableWithConfig(config)

		Expect(table.Seq(0x02000000, latency.Width16)).To(Equal(uint32(1)))
		Expect(table.NonSeq(0x10000000, latency.Width8)).To(Equal(uint32(3)))
		Expect(table.Config()).To(BeIdenticalTo(config))
	})
})

var _ = Describe("TimingConfig", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("should validate the defaults", func() {
		Expect(latency.DefaultTimingConfig().Validate()).To(Succeed())
	})

	DescribeTable("rejecting bad values",
		func(mutate func(c *latency.TimingConfig)) {
			c := latency.DefaultTimingConfig()
			mutate(c)
			Expect(c.Validate()).NotTo(Succeed())
		},
		Entry("zero unmapped cost", func(c *latency.TimingConfig) { c.UnmappedCost = 0 }),
		Entry("too many EWRAM wait states", func(c *latency.TimingConfig) { c.EWRAMWaitStates = 16 }),
		Entry("read-only WAITCNT bit", func(c *latency.TimingConfig) { c.WaitControl = 0x8000 }),
	)

	It("should save and load a configuration", func() {
		path := filepath.Join(dir, "timing.json")
		c := latency.DefaultTimingConfig()
		c.WaitControl = 0

		Expect(c.SaveConfig(path)).To(Succeed())
		loaded, err := latency.LoadConfig(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(c))
	})

	It("should keep defaults for missing fields", func() {
		path := filepath.Join(dir, "partial.json")
		Expect(os.WriteFile(path, []byte(`{"unmapped_cost": 4}`), 0o644)).To(Succeed())

		loaded, err := latency.LoadConfig(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.UnmappedCost).To(Equal(uint32(4)))
		Expect(loaded.WaitControl).To(Equal(uint16(latency.DefaultWaitControl)))
	})

	It("should report unreadable and malformed files", func() {
		_, err := latency.LoadConfig(filepath.Join(dir, "missing.json"))
		Expect(err).To(HaveOccurred())

		path := filepath.Join(dir, "bad.json")
		Expect(os.WriteFile(path, []byte("{"), 0o644)).To(Succeed())
		_, err = latency.LoadConfig(path)
		Expect(err).To(MatchError(ContainSubstring("parse")))
	})

	It("should clone independently", func() {
		c := latency.DefaultTimingConfig()
		clone := c.Clone()
		clone.UnmappedCost = 7

		Expect(c.UnmappedCost).To(Equal(uint32(1)))
	})
})
