// Package nutrisafe embeds the clinical food safety engine in a Go program.
//
// The engine checks candidate foods, ingredient lists and recipes against a
// patient profile (medications, conditions, allergies) using a versioned
// knowledge base bundle. Every verdict names the rules that fired, their
// evidence and citations, and the knowledge base version it was evaluated
// against. Anything the engine could not verify makes the verdict
// incomplete instead of safe.
//
//	engine, _ := nutrisafe.New(nutrisafe.WithBundleFile("kb/2025.06.0.yaml"))
//	v := engine.Check(ctx, nutrisafe.Query{
//	    Profile: nutrisafe.Profile{
//	        Medications: []nutrisafe.Medication{{Name: "Coumadin", Dosage: "5 mg"}},
//	        Conditions:  []string{},
//	        Allergies:   []nutrisafe.Allergy{},
//	    },
//	    Items: []nutrisafe.Item{{ID: "1", Name: "kale"}},
//	})
//	fmt.Println(v.Status(), v.OverallRisk())
//
// A nil profile section means "not provided" and yields an incomplete
// verdict; an empty one means "none".
package nutrisafe
