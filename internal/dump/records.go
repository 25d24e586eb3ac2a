package dump

import (
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"gnobounty/internal/model"
)

// legacyTime matches the named-field time shapes: "(time.Time)(...)" or a bare
// date-time run.
func legacyTime(name string) *regexp.Regexp {
	return regexp.MustCompile(name + `:\(time\.Time\)\(([^)]+)\)|` + name + `:([0-9\-: ]+)`)
}

func legacyAddress(name string) *regexp.Regexp {
	return regexp.MustCompile(name + `:\(std\.Address\)\((g[a-z0-9]*)\)|` + name + `:(g[a-z0-9]*)`)
}

// BountySchema decodes GetBounty results.
var BountySchema = NewSchema("Bounty", 0, false, []FieldSpec{
	{Name: "ID", Kind: KindUint, Legacy: regexp.MustCompile(`\bID:(\d+)`)},
	{Name: "Title", Kind: KindString, Legacy: regexp.MustCompile(`Title:"([^"]*)"`)},
	{Name: "IssueURL", Kind: KindString, Legacy: regexp.MustCompile(`IssueURL:"([^"]*)"`)},
	{Name: "Description", Kind: KindString, Legacy: regexp.MustCompile(`Description:"([^"]*)"`)},
	{Name: "Amount", Kind: KindUint, Legacy: regexp.MustCompile(`Amount:(\d+)`)},
	{Name: "Creator", Kind: KindAddress, Legacy: legacyAddress("Creator")},
	{Name: "CreatedAt", Kind: KindRef, Legacy: legacyTime("CreatedAt")},
	{Name: "IsClaimed", Kind: KindBool, Legacy: regexp.MustCompile(`IsClaimed:(true|false)`)},
	{Name: "Claimer", Kind: KindAddress, Legacy: legacyAddress("Claimer")},
	{Name: "ClaimedAt", Kind: KindRef, Legacy: legacyTime("ClaimedAt")},
}, buildBounty)

// ApplicationSchema decodes the elements of GetApplicationsForBounty results.
// DAO, VotingThreshold and VoteRecords are present in the dump but unused.
var ApplicationSchema = NewSchema("Application", 0, false, []FieldSpec{
	{Name: "ID", Kind: KindUint, Legacy: regexp.MustCompile(`\bID:(\d+)`)},
	{Name: "BountyID", Kind: KindUint, Legacy: regexp.MustCompile(`BountyID:(\d+)`)},
	{Name: "Applicant", Kind: KindAddress, Legacy: legacyAddress("Applicant")},
	{Name: "PRLink", Kind: KindString, Legacy: regexp.MustCompile(`PRLink:"([^"]*)"`)},
	{Name: "AppliedAt", Kind: KindRef, Legacy: legacyTime("AppliedAt")},
	{Name: "Status", Kind: KindUint, Legacy: regexp.MustCompile(`Status:(\d+)|Status:"([^"]*)"`)},
	{Name: "DAO", Kind: KindIgnore},
	{Name: "VotingThreshold", Kind: KindIgnore},
	{Name: "VoteRecords", Kind: KindIgnore},
}, buildApplication)

// LeaderboardSchema decodes the elements of GetLeaderboard results.
var LeaderboardSchema = NewSchema("LeaderboardEntry", 0, true, []FieldSpec{
	{Name: "Address", Kind: KindAddress},
	{Name: "BountiesCreated", Kind: KindInt},
	{Name: "BountiesApplied", Kind: KindInt},
	{Name: "ValidationsPerformed", Kind: KindInt},
	{Name: "Score", Kind: KindInt},
}, buildLeaderboardEntry)

var (
	addressSuffix = suffixPattern("Address")
	bareAddressRe = regexp.MustCompile(`\bg1[a-z0-9]{38}\b`)
)

func buildBounty(r Record) model.Bounty {
	return model.Bounty{
		ID:          r.Get("ID").Text,
		Title:       r.Get("Title").Text,
		IssueURL:    r.Get("IssueURL").Text,
		Description: r.Get("Description").Text,
		Amount:      r.Get("Amount").Or("0"),
		Creator:     r.Get("Creator").Text,
		CreatedAt:   r.Get("CreatedAt").Text,
		IsClaimed:   r.Get("IsClaimed").Bool(),
		Claimer:     r.Get("Claimer").Text,
		ClaimedAt:   r.Get("ClaimedAt").Text,
	}
}

func buildApplication(r Record) model.Application {
	return model.Application{
		ID:        r.Get("ID").Text,
		BountyID:  r.Get("BountyID").Text,
		Applicant: r.Get("Applicant").Text,
		PRLink:    r.Get("PRLink").Text,
		AppliedAt: r.Get("AppliedAt").Text,
		Status:    decodeStatus(r),
	}
}

func decodeStatus(r Record) model.ApplicationStatus {
	f := r.Get("Status")
	if f.Valid {
		code := f.Uint()
		status, ok := model.StatusFromCode(code)
		if !ok {
			r.Warn("unknown application status code, using Pending", zap.Uint64("code", code))
		}
		return status
	}
	if f.Text != "" {
		status, ok := model.ParseStatus(f.Text)
		if !ok {
			r.Warn("unknown application status label, using Pending", zap.String("label", f.Text))
		}
		return status
	}
	return model.StatusPending
}

func buildLeaderboardEntry(r Record) model.LeaderboardEntry {
	return model.LeaderboardEntry{
		Address:              r.Get("Address").Text,
		BountiesCreated:      r.Get("BountiesCreated").Int(),
		BountiesApplied:      r.Get("BountiesApplied").Int(),
		ValidationsPerformed: r.Get("ValidationsPerformed").Int(),
		Score:                r.Get("Score").Int(),
	}
}

// Bounty decodes a GetBounty result, or returns nil when the dump holds no
// bounty with an ID.
func (p *Parser) Bounty(raw string) *model.Bounty {
	b, ok := Parse(p, BountySchema, raw)
	if !ok {
		return nil
	}
	return &b
}

// Applications decodes a GetApplicationsForBounty result.
func (p *Parser) Applications(raw string) []model.Application {
	return ParseMany(p, ApplicationSchema, raw)
}

// leaderboardLineRe matches the one-entry-per-line leaderboard rendering.
var leaderboardLineRe = regexp.MustCompile(`([a-z0-9]+)\s+Created:(\d+)\s+Applied:(\d+)\s+Validated:(\d+)\s+Score:(\d+)`)

// Leaderboard decodes a GetLeaderboard result ordered by score, highest first.
// A dump without a typed slice is read line by line instead.
func (p *Parser) Leaderboard(raw string) []model.LeaderboardEntry {
	entries := ParseMany(p, LeaderboardSchema, raw)
	if _, found := sliceRegion(raw, LeaderboardSchema.suffix); !found {
		entries = append(entries, p.leaderboardLines(raw)...)
	}
	model.SortByScore(entries)
	return entries
}

func (p *Parser) leaderboardLines(raw string) []model.LeaderboardEntry {
	p = orDefault(p)
	out := make([]model.LeaderboardEntry, 0)
	for _, line := range strings.Split(raw, "\n") {
		m := leaderboardLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		var nums [4]int64
		ok := true
		for i := range nums {
			n, err := strconv.ParseInt(m[i+2], 10, 64)
			if err != nil {
				ok = false
				break
			}
			nums[i] = n
		}
		if !ok {
			p.observe(LeaderboardSchema.Name, OutcomeDropped)
			p.logger.Debug("leaderboard line dropped", zap.String("line", line))
			continue
		}
		p.observe(LeaderboardSchema.Name, OutcomeLegacy)
		out = append(out, model.LeaderboardEntry{
			Address:              m[1],
			BountiesCreated:      nums[0],
			BountiesApplied:      nums[1],
			ValidationsPerformed: nums[2],
			Score:                nums[3],
		})
	}
	return out
}

// Count decodes a GetBountyCount result.
func (p *Parser) Count(raw string) (uint64, bool) {
	f := Decode(raw, KindUint)
	if !f.Valid {
		orDefault(p).logger.Debug("count not found in dump")
		return 0, false
	}
	n, err := strconv.ParseUint(f.Text, 10, 64)
	if err != nil {
		orDefault(p).logger.Warn("count out of range", zap.String("text", f.Text), zap.Error(err))
		return 0, false
	}
	return n, true
}

// Addresses decodes a slice of addresses such as a GetValidatorsForApplication
// result. Without a typed slice it falls back to every bare address in the dump.
func (p *Parser) Addresses(raw string) []string {
	out := make([]string, 0)
	if region, ok := sliceRegion(raw, addressSuffix); ok {
		values, _ := scanSlots(region, 0)
		for _, v := range values {
			if f := Decode(v, KindAddress); f.Valid {
				out = append(out, f.Text)
			}
		}
		return out
	}
	return append(out, bareAddressRe.FindAllString(raw, -1)...)
}

// ParseBounty decodes a GetBounty result with the default parser.
func ParseBounty(raw string) *model.Bounty { return defaultParser.Bounty(raw) }

// ParseApplications decodes a GetApplicationsForBounty result with the default parser.
func ParseApplications(raw string) []model.Application { return defaultParser.Applications(raw) }

// ParseLeaderboard decodes a GetLeaderboard result with the default parser.
func ParseLeaderboard(raw string) []model.LeaderboardEntry { return defaultParser.Leaderboard(raw) }
