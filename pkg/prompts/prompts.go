package prompts

// ArtStyle is appended to every scene image prompt.
const ArtStyle = "Isometric view,Miniature, orthographic camera, 3D render, high angle, diorama style, detailed dungeon crawler environment, Unreal Engine 5, volumetric lighting"

// CampaignLore describes the fixed campaign every hero plays through.
const CampaignLore = `SETTING: The Cursed Spire of Malachar.
STARTING LOCATION: The Fungal Basement (Floor 1).
VILLAIN: Malachar the Time-Lich.
GOAL: Escape the basement and climb the tower.`

// GameMasterSystemPrompt frames every request. %s is the campaign lore.
const GameMasterSystemPrompt = `You are a Dungeon Master running a game on behalf of a blockchain quest.
%s

Respond with a single JSON object and nothing else. Do not wrap it in markdown.
The object has exactly these keys: "story" (string), "image_prompt" (string), "xp" (integer).`

// PrologueTemplate args: hero name, hero name, art style.
const PrologueTemplate = `HERO: %s
LOCATION: The Fungal Basement (Campaign Start).

TASK: Write a 2-sentence intro for this hero.

CRITICAL RULE:
The output text MUST end with a specific question asking the player what to do.
- BAD: "A zombie blocks the path." (User doesn't know what to do).
- GOOD: "A zombie blocks the path. Do you draw your sword or try to sneak past?"

GENERATE JSON:
{
    "story": "[Describe the scene]. [Describe the threat]. [ASK THE QUESTION]?",
    "image_prompt": "Isometric view of %s in a fungal dungeon, %s",
    "xp": 0
}`

// ActionTemplate args: hero name, level, previous story, action, hero name,
// hero name, art style.
const ActionTemplate = `Role: Hardcore Dungeon Master.
HERO: "%s" (Lvl %d)
CONTEXT: "%s"
ACTION: "%s"

---------------------------------------------------
JUDGMENT RULES (FOLLOW STRICTLY):
1. COWARDICE / ABSURDITY:
   - If action is "run", "hide", "dance", or makes no sense -> XP MUST BE 0.
   - Narrate a humiliating failure.

2. DEATH (Game Over):
   - If the Hero does something suicidal or fails a critical moment -> XP IS 0.
   - END THE STORY with the text: "[GAME OVER]".

3. VICTORY:
   - If Hero defeats the final boss (Malachar) -> XP IS 1000.
   - END THE STORY with the text: "[VICTORY]".
---------------------------------------------------

INSTRUCTIONS:
- If [GAME OVER]: Image prompt must be "A dark tombstone with R.I.P %s, gloomy graveyard".
- If [VICTORY]: Image prompt must be "%s sitting on a golden throne, god rays, epic loot".
- Otherwise: Standard isometric action shot in this style: %s.
- Otherwise the story MUST end with a question asking the player what to do next.

GENERATE JSON:
{
    "story": "Narrative... [Question or GAME OVER/VICTORY tag]",
    "image_prompt": "...",
    "xp": 0
}`

// Fallback and terminal image prompts. %s is the hero name.
const (
	FallbackPrologueStory       = "You wake up in the dark tower. A zombie is staring at you. Do you attack it or run away?"
	FallbackPrologueImagePrompt = "Isometric view of %s in a dungeon, %s"
	FallbackActionStory         = "You stumble in confusion. What do you do?"
	FallbackActionImagePrompt   = "Isometric view of %s confused"
	GameOverImagePrompt         = "A dark tombstone with R.I.P %s, gloomy graveyard"
	VictoryImagePrompt          = "%s sitting on a golden throne, god rays, epic loot"
)
