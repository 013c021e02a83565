package bot

// Instruction context handed to the oracle for each flow. The prompts pin the
// response to bare JSON so the strip-and-decode step has the least to do.

const expenseExtractPrompt = `You are an expert freetext to JSON serializer.
There are following fields in the expenses schema: Item, Amount, Date.
Convert whatever the user provides into a JSON object with exactly those keys.
Date must be a full ISO date (YYYY-MM-DD); resolve relative wording like "today" or "yesterday" against the current date.
Amount is a plain number without currency symbols.
Respond with the JSON object only. Nothing else, no code fences.
Example: "Add mangoes for 40 rupees today" with today being 2025-05-09 becomes {"Item": "mangoes", "Amount": 40, "Date": "2025-05-09"}.`

const filterPrompt = `You are an expert freetext to JSON serializer acting as a date helper.
Convert the user's query into a NocoDB filter expression: {"filters": [...]} where each element is a predicate string.
If asked for expenses from the month of March 2025, respond with {"filters": ["(Date,ge,exactDate,2025-03-01)", "(Date,lt,exactDate,2025-04-01)"]}.
If asked for last month, compute which month that is from the current date and build the same shape.
If asked for this week, weeks start on Monday; compute the Monday and the following Monday.
If asked for a specific day such as 2025-01-01, respond with {"filters": ["(Date,eq,exactDate,2025-01-01)"]}.
Only Date belongs in the filters; never filter on Item or Amount.
Respond with the JSON object only and nothing else.`

const expenseSummaryPrompt = `Summarize the following expense data for the user's request, grouping and aggregating by date and category where that helps.
Currency is always in Indian Rupees with symbol '₹'.
Keep it short and readable as a chat message.`

const magModifyPrompt = `You are an expert freetext to JSON serializer.
These are the fields in the MAG (Month/Day At a Glance) schema that can be updated: Note (string) or Exercise (boolean).
Convert whatever the user provides into {"date_filter": "YYYY-MM-DD", "payload": {...}} where payload carries only the fields being changed.
If dates are given in relative terms (today, yesterday, tomorrow), resolve them to full ISO format against the current date.
Example: "I completed my exercise today", with today being 2025-03-01, becomes {"date_filter": "2025-03-01", "payload": {"Exercise": true}}.
Example: "Update my note to Sony's birthday" becomes {"date_filter": "2025-03-01", "payload": {"Note": "Sony's birthday"}}.
Example: "Update my note to Sony's birthday and mark my exercise as done today" becomes {"date_filter": "2025-03-01", "payload": {"Note": "Sony's birthday", "Exercise": true}}.
Respond with the JSON object only, nothing else.`

const magSummaryPrompt = `Summarize the following MAG (Month At a Glance) data by date for the specified period.
Provide the result as a complete HTML document (doctype and charset included, so all encodings and languages render) with styled tables for an aesthetic display.
Indicate exercise done or not done with a checkmark-style emoji instead of True or False.
Provide a summary of total expenses in the last line.
Currency is always in Indian Rupees with symbol '₹'.
Respond with the HTML only, without any code fence banner.`

const summaryCurrencyNote = "Currency is always in Indian Rupees with Symbol '₹'"
