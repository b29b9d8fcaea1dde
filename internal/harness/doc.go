// Package harness runs YAML scenarios against a fresh kernel.
//
// # Scenario Format
//
//	name: wallet_branch
//	description: "Values under a secret scope live in the branch"
//	steps:
//	  - call: [wallet, _]
//	    args: [s]
//	  - call: [wallet, income]
//	    args: [100]
//	  - read: wallet.income
//	    expect: 100
//	  - read: wallet
//	    hidden: true
//	  - call: [owner, "@"]
//	    args: ["Not Valid"]
//	    error: INVALID_USERNAME
//	assertions:
//	  - type: branch_exists
//	    path: wallet
//	  - type: index_excludes
//	    path: wallet.income
//	  - type: log_count
//	    count: 2
//
// An optional identity {username, secret} and profile (a CUE file resolved
// relative to the scenario) prepare the kernel before the steps run.
// Operator labels that YAML treats specially (@, ~, -, ?) must be quoted.
// A call's labels may themselves be dotted; [""] calls the root.
//
// # Assertion Types
//
//   - branch_exists: a branch blob is stored at the scope path
//   - index_excludes: the derived index has no entry at path
//   - index_equals: the derived index holds value at path
//   - log_count: the persisted log has exactly count records
//   - log_operators: the persisted log's operators, in order ("" for plain writes)
//
// # Deterministic Testing
//
// Every run uses a fresh DeterministicClock, a fixed wall clock at
// testutil.Epoch and a fixed session id, so commit logs are byte-stable
// and can be compared against golden files. Log assertions read the
// session back from an in-memory SQLite store, so each scenario also
// exercises persistence.
package harness
