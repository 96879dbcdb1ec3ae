package grading

// Interview types with a rubric bound to them.
const (
	TypePhoneScreen  = "phone_screen"
	TypeSystemDesign = "system_design"
)

const phoneScreenRubric = `# Phone Screen Interview Rubric

The agent greets the candidate, explains the ~15 minute AI-first technical screen,
asks "What's the most exceptional thing you've built?", then deep-dives 3-5 levels
into one concrete part of their system before closing with candidate questions.

## Evaluation Criteria

1. Technical Depth (40%)
   - Sufficient technical detail; held up 3-5 levels deep when probed.
   - Understands the technologies used and WHY they were chosen.
   - Demonstrates ownership of the implementation.

2. Communication (30%)
   - Clear and concise; can explain complex concepts simply.
   - Responsive to follow-ups; stays on topic.

3. Problem-Solving & Engineering Mindset (20%)
   - Thoughtful engineering decisions; can discuss tradeoffs.
   - Shows initiative, curiosity, and depth of understanding.

4. Culture Fit (10%)
   - Comfortable with a fast-paced, small-team environment and ambiguity.
   - Demonstrates deep technical ownership.

## Scoring Guide
- 3 (Strong Yes): Exceptional. Went 4-5 levels deep, excellent communication,
  strong engineering mindset.
- 2 (Weak Yes): Solid with some strengths. Went 2-3 levels deep, decent
  communication, minor gaps.
- 1 (Weak No): Significant concerns. Struggled past 1-2 levels, weak
  communication or technical depth.
- 0 (Strong No): Could not explain their own work; major red flags.`

const systemDesignRubric = `# System Design Interview Rubric

The agent asks the candidate to design a web-based note-taking app, has them
describe the design verbally, then draw and submit a diagram for automated
feedback, and probes scalability, reliability, and tradeoffs.

## Evaluation Criteria

1. Requirements Gathering (15%)
   - Asked clarifying questions; identified auth, sync, persistence, search.
   - Considered scale, constraints, functional vs non-functional requirements.

2. Architecture Design (35%)
   - Reasonable high-level architecture with the necessary components
     (load balancer, app servers, database, caching).
   - Addressed data durability and authentication.

3. Scalability & Reliability (25%)
   - Identified single points of failure; discussed replication, redundancy,
     failover, backup, and how the system scales with users.
   - Responded well to diagram feedback.

4. Technical Depth & Tradeoffs (15%)
   - Explained WHY specific technologies were chosen; discussed tradeoffs
     and alternatives; handled follow-ups on each layer.

5. Communication & Diagram Quality (10%)
   - Clear verbal description before drawing; organized diagram; structured
     conversation.

## Scoring Guide
- 3 (Strong Yes): Comprehensive architecture, addressed SPOFs, strong grasp of
  tradeoffs, clear communication.
- 2 (Weak Yes): Sound approach with some gaps; responded reasonably to feedback.
- 1 (Weak No): Missing critical components or poor understanding of
  scalability/reliability.
- 0 (Strong No): Major gaps; could not respond to feedback.`

func rubricFor(interviewType string) string {
	if interviewType == TypeSystemDesign {
		return systemDesignRubric
	}
	return phoneScreenRubric
}
